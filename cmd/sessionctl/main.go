// Package main implements the sessionctl CLI for manual operations against
// the sessiond HTTP server.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the sessiond HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sessionctl",
	Short: "CLI for sessiond HTTP server operations",
	Long: `sessionctl is a command-line interface for interacting with the sessiond
HTTP server. It provides commands for tailing session streams, submitting
prompts, stopping sessions, and checking server health.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8800", "sessiond server URL")
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(healthCmd)
}

// streamCmd tails a session's event stream
var streamCmd = &cobra.Command{
	Use:   "stream <session-id>",
	Short: "Tail a session's event stream",
	Long: `Subscribe to a session's Server-Sent Events stream and print each
wire frame as a JSON line until the session completes.

Examples:
  # Tail a session
  sessionctl stream 6f1c2a9e-0b7d-4f3e-8a11-2d9c4e5b6a70

  # Use a different server
  sessionctl stream --server http://localhost:8080 <session-id>`,
	Args: cobra.ExactArgs(1),
	RunE: runStream,
}

// promptCmd submits a prompt to a session
var promptCmd = &cobra.Command{
	Use:   "prompt <session-id> [text]",
	Short: "Submit a user prompt to a session",
	Long: `Submit a user prompt to a running session. The prompt is read from the
argument, or from stdin when the argument is omitted or "-".

Examples:
  # Submit a prompt
  sessionctl prompt <session-id> "summarize the diff"

  # Submit from stdin
  cat prompt.txt | sessionctl prompt <session-id> -`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPrompt,
}

// stopCmd requests a session stop
var stopCmd = &cobra.Command{
	Use:   "stop <session-id>",
	Short: "Request a session to stop",
	Long: `Ask sessiond to stop a running session. The request runs through the
lifecycle hooks; a hook may veto it, in which case the server answers 409.

Examples:
  # Stop a session
  sessionctl stop 6f1c2a9e-0b7d-4f3e-8a11-2d9c4e5b6a70`,
	Args: cobra.ExactArgs(1),
	RunE: runStop,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check sessiond server health",
	Long: `Check the health status of the sessiond HTTP server.

Examples:
  # Check health
  sessionctl health

  # Check health on a different server
  sessionctl health --server http://localhost:8080`,
	RunE: runHealth,
}

// PromptRequest matches internal/http/types.go PromptRequest
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// HealthResponse matches internal/http/types.go HealthResponse
type HealthResponse struct {
	Status string `json:"status"`
}

// runStream handles the stream command
func runStream(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/api/v1/sessions/%s/stream", serverURL, args[0])

	// No client timeout: the stream stays open for the session's lifetime.
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		// SSE framing: print data payloads, skip comments and blank lines.
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			fmt.Println(data)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read error: %w", err)
	}
	return nil
}

// runPrompt handles the prompt command
func runPrompt(cmd *cobra.Command, args []string) error {
	var prompt string
	if len(args) < 2 || args[1] == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
		prompt = string(content)
	} else {
		prompt = args[1]
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("no prompt to submit")
	}

	reqJSON, err := json.Marshal(PromptRequest{Prompt: prompt})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/sessions/%s/prompt", serverURL, args[0])
	return postJSON(url, reqJSON)
}

// runStop handles the stop command
func runStop(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/api/v1/sessions/%s/stop", serverURL, args[0])
	return postJSON(url, nil)
}

// postJSON sends a POST request and prints the server's JSON response.
func postJSON(url string, body []byte) error {
	httpReq, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	fmt.Println(strings.TrimSpace(string(respBody)))
	return nil
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to reach server at %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("sessiond: %s\n", health.Status)
	return nil
}
