package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

func newMockResend(t *testing.T, handler http.HandlerFunc) *ResendTransport {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := resend.NewClient("test-api-key")
	baseURL, _ := url.Parse(server.URL)
	client.BaseURL = baseURL
	return &ResendTransport{client: client, logger: zerolog.Nop()}
}

func TestResendTransport_Success(t *testing.T) {
	transport := newMockResend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/emails" {
			t.Errorf("Expected POST /emails, got %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("Expected Bearer token in Authorization header, got %q", auth)
		}

		var req resend.SendEmailRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.From != "hack@example.com" {
			t.Errorf("Expected From=hack@example.com, got %q", req.From)
		}
		if len(req.To) != 1 || req.To[0] != "team@example.com" {
			t.Errorf("Expected To=[team@example.com], got %v", req.To)
		}
		if req.Subject != "Участие в хакатоне" {
			t.Errorf("Unexpected subject %q", req.Subject)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "mock-email-id-123"})
	})

	err := transport.Send(context.Background(), "hack@example.com", Message{
		To:      "team@example.com",
		Subject: "Участие в хакатоне",
		HTML:    "<p>Ждём вас</p>",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestResendTransport_RateLimitError(t *testing.T) {
	transport := newMockResend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Limit", "100")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "60")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Rate limit exceeded"})
	})

	err := transport.Send(context.Background(), "hack@example.com", Message{To: "team@example.com", Subject: "s", HTML: "b"})
	if err == nil {
		t.Fatal("Expected rate limit error, got nil")
	}
	if !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("Expected error message to contain 'rate limit', got: %v", err)
	}
	if errors.Is(err, ErrNoRecipient) {
		t.Errorf("Rate limit must not be reported as a recipient failure")
	}
}

func TestResendTransport_ContextCancellation(t *testing.T) {
	transport := newMockResend(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called with cancelled context")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := transport.Send(ctx, "hack@example.com", Message{To: "team@example.com", Subject: "s", HTML: "b"})
	if err == nil {
		t.Fatal("Expected context cancellation error, got nil")
	}
	if !errors.Is(err, context.Canceled) && !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("Expected context.Canceled error, got: %v", err)
	}
}

func TestResendTransport_NilClient(t *testing.T) {
	transport := &ResendTransport{logger: zerolog.Nop()}

	err := transport.Send(context.Background(), "hack@example.com", Message{To: "team@example.com"})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("Expected 'not initialized' error, got: %v", err)
	}
}

func TestResendTransport_GenericAPIError(t *testing.T) {
	transport := newMockResend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message": "Invalid request",
			"name":    "validation_error",
		})
	})

	err := transport.Send(context.Background(), "hack@example.com", Message{To: "team@example.com", Subject: "s", HTML: "b"})
	if err == nil {
		t.Fatal("Expected API error, got nil")
	}
	if !strings.Contains(err.Error(), "resend API error") {
		t.Errorf("Expected 'resend API error' in message, got: %v", err)
	}
	if errors.Is(err, ErrNoRecipient) {
		t.Errorf("Generic validation error must not be reported as a recipient failure")
	}
}

func TestResendTransport_RecipientRejected(t *testing.T) {
	transport := newMockResend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"statusCode": 422,
			"name":       "validation_error",
			"message":    "Invalid `to` field. The email address needs to follow the `email@example.com` or `Name <email@example.com>` format.",
		})
	})

	err := transport.Send(context.Background(), "hack@example.com", Message{To: "team@example.com", Subject: "s", HTML: "b"})
	if !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("Expected ErrNoRecipient, got: %v", err)
	}

	gateway := NewGatewayWithTransport(transport, "hack@example.com", 0, zerolog.Nop())
	if status := gateway.Send(context.Background(), Message{To: "team@example.com", Subject: "s", HTML: "b"}); status != StatusNoRecipient {
		t.Errorf("Expected StatusNoRecipient, got %v", status)
	}
}
