package hooks

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dispatchScope(t *testing.T, cfg *RegistryConfig, workDir string) *HookOutput {
	t.Helper()
	r := NewRegistry(cfg, nil)
	r.Register(ScopeVerificationHook())
	return r.Execute(context.Background(), SessionStart, HookInput{
		SessionID: "s1",
		Event:     SessionStart,
		WorkDir:   workDir,
	}, nil)
}

func TestScopeVerification_AllowsInsideRoot(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultRegistryConfig()
	cfg.ScopeVerification.AllowedRoots = []string{root}

	out := dispatchScope(t, cfg, filepath.Join(root, "project"))
	assert.Nil(t, out)
}

func TestScopeVerification_AllowsRootItself(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultRegistryConfig()
	cfg.ScopeVerification.AllowedRoots = []string{root}

	out := dispatchScope(t, cfg, root)
	assert.Nil(t, out)
}

func TestScopeVerification_BlocksOutsideRoot(t *testing.T) {
	cfg := DefaultRegistryConfig()
	cfg.ScopeVerification.AllowedRoots = []string{t.TempDir()}

	out := dispatchScope(t, cfg, t.TempDir())
	require.NotNil(t, out)
	assert.False(t, out.Continue)
	assert.Contains(t, out.StopReason, "outside allowed roots")
}

// A sibling directory sharing the root's name prefix is still outside.
func TestScopeVerification_PrefixSiblingIsBlocked(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "work")
	cfg := DefaultRegistryConfig()
	cfg.ScopeVerification.AllowedRoots = []string{root}

	out := dispatchScope(t, cfg, filepath.Join(base, "workspace"))
	require.NotNil(t, out)
	assert.False(t, out.Continue)
}

func TestScopeVerification_NoRootsMeansNoRestriction(t *testing.T) {
	out := dispatchScope(t, DefaultRegistryConfig(), t.TempDir())
	assert.Nil(t, out)
}

func TestScopeVerification_DisabledViaConfig(t *testing.T) {
	cfg := DefaultRegistryConfig()
	cfg.ScopeVerification.Enabled = false
	cfg.ScopeVerification.AllowedRoots = []string{t.TempDir()}

	out := dispatchScope(t, cfg, t.TempDir())
	assert.Nil(t, out)
}
