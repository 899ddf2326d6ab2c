package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// HealthResponse matches the /readyz body served by the health handlers.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthCheckResult is the outcome of one probe.
type HealthCheckResult struct {
	IsHealthy  bool
	Status     string
	StatusCode int
	Error      string
}

func newHealthcheckCommand() *cobra.Command {
	var (
		timeout time.Duration
		url     string
	)

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is ready",
		Long: `Performs a readiness check by calling the /readyz endpoint.

This command is used by Docker HEALTHCHECK to monitor container health.

Exit codes:
  0 - Server is healthy
  1 - Server is unhealthy or unreachable
  2 - Invalid response from server`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				port := os.Getenv("PORT")
				if port == "" {
					port = "5000"
				}
				url = fmt.Sprintf("http://localhost:%s/readyz", port)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			result := performHealthCheck(ctx, url)
			switch {
			case result.Error != "" && result.StatusCode != 0:
				return &exitError{code: 2, err: fmt.Errorf("invalid health response: %s", result.Error)}
			case result.Error != "":
				return &exitError{code: 1, err: fmt.Errorf("health check failed: %s", result.Error)}
			case !result.IsHealthy:
				return &exitError{code: 1, err: fmt.Errorf("unhealthy: status=%s code=%d", result.Status, result.StatusCode)}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", result.Status)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().StringVar(&url, "url", "", "readiness URL (default: http://localhost:{PORT}/readyz)")
	return cmd
}

func performHealthCheck(ctx context.Context, url string) HealthCheckResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HealthCheckResult{Error: err.Error()}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return HealthCheckResult{Error: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	result := HealthCheckResult{StatusCode: resp.StatusCode}
	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		result.Error = fmt.Sprintf("decode response: %v", err)
		return result
	}
	result.Status = body.Status
	result.IsHealthy = resp.StatusCode == http.StatusOK && body.Status == "healthy"
	return result
}
