package hooks

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// ScopeVerificationHook returns the built-in hook that blocks sessions
// whose working directory falls outside the configured allowed roots.
// It registers under SessionStart with priority 0 so it runs before any
// cosmetic or logging hooks. The hook reads AllowedRoots from the config
// snapshot of the dispatch, so hot-reloaded configuration applies without
// re-registration.
func ScopeVerificationHook() NativeHook {
	return NativeHook{
		ID:       ScopeVerificationHookID,
		Event:    SessionStart,
		Priority: 0,
		Handler:  verifyScope,
	}
}

func verifyScope(_ context.Context, input HookInput, hctx *HookContext) (*HookOutput, error) {
	roots := hctx.Config.ScopeVerification.AllowedRoots
	if len(roots) == 0 {
		return nil, nil
	}

	workDir, err := filepath.Abs(input.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("resolve work dir %q: %w", input.WorkDir, err)
	}

	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if workDir == absRoot || strings.HasPrefix(workDir, absRoot+string(filepath.Separator)) {
			return nil, nil
		}
	}

	return Block(fmt.Sprintf("working directory %s is outside allowed roots", workDir)), nil
}
