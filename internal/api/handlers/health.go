package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HealthCheck represents the health status of the server
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HealthStore is the part of the storage layer the readiness probe needs.
type HealthStore interface {
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (version int64, dirty bool, err error)
}

type HealthChecker struct {
	store     HealthStore
	version   string
	gitCommit string
}

func NewHealthChecker(store HealthStore, version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		store:     store,
		version:   version,
		gitCommit: gitCommit,
	}
}

// Healthz is the liveness probe. It never touches dependencies.
func (h *HealthChecker) Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Readyz runs the dependency checks and reports 503 when any of them fails.
func (h *HealthChecker) Readyz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Graceful shutdown in progress
		select {
		case <-r.Context().Done():
			writeHealth(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
			return
		default:
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]CheckResult{
			"database":   h.checkDatabase(ctx),
			"migrations": h.checkMigrations(ctx),
		}

		overall := "healthy"
		status := http.StatusOK
		for _, check := range checks {
			if check.Status == "fail" {
				overall = "unhealthy"
				status = http.StatusServiceUnavailable
				break
			}
		}

		writeHealth(w, status, HealthCheck{
			Status:    overall,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.store == nil {
		return CheckResult{Status: "fail", Message: "Database not initialized"}
	}

	// Per-check timeout so one slow check cannot starve the others
	dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.store.Ping(dbCtx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "Database ping failed"
		details := map[string]any{"error": err.Error()}
		switch {
		case errors.Is(dbCtx.Err(), context.DeadlineExceeded):
			message = "Database ping timed out after 2 seconds"
		case strings.Contains(err.Error(), "connection refused"):
			message = "Database connection refused"
			details["remediation"] = "Verify PostgreSQL is running and DATABASE_URL host/port are correct"
		case strings.Contains(err.Error(), "authentication failed"):
			message = "Database authentication failed"
			details["remediation"] = "Verify DATABASE_URL username and password are correct"
		}
		return CheckResult{Status: "fail", Message: message, LatencyMs: latency, Details: details}
	}

	return CheckResult{Status: "pass", Message: "PostgreSQL connection successful", LatencyMs: latency}
}

func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	if h.store == nil {
		return CheckResult{Status: "fail", Message: "Database not initialized"}
	}

	migCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	version, dirty, err := h.store.SchemaVersion(migCtx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{
			Status:    "fail",
			Message:   "Failed to query migration version",
			LatencyMs: latency,
			Details: map[string]any{
				"error":       err.Error(),
				"remediation": "Run database migrations first: server migrate up",
			},
		}
	}
	if dirty {
		return CheckResult{
			Status:    "fail",
			Message:   "Database in dirty migration state - manual intervention required",
			LatencyMs: latency,
			Details: map[string]any{
				"version": version,
				"dirty":   dirty,
				"action":  "Do NOT run new migrations until this is resolved",
			},
		}
	}

	return CheckResult{
		Status:    "pass",
		Message:   fmt.Sprintf("Migrations applied successfully (version %d)", version),
		LatencyMs: latency,
		Details:   map[string]any{"version": version, "dirty": false},
	}
}

func writeHealth(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
