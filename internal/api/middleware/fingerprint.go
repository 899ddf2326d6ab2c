package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

type contextKeyFingerprint string

const fingerprintKey contextKeyFingerprint = "fingerprint"

// ClientHeader marks requests sent by the first-party frontend.
const ClientHeader = "X-Client-Trpc"

// Fingerprinter derives the client fingerprint used as the rate-limit key.
type Fingerprinter struct {
	trusted []*net.IPNet
}

// NewFingerprinter parses the trusted proxy CIDRs once. Invalid entries are
// skipped.
func NewFingerprinter(trustedProxyCIDRs []string) *Fingerprinter {
	f := &Fingerprinter{}
	for _, cidrStr := range trustedProxyCIDRs {
		_, cidr, err := net.ParseCIDR(strings.TrimSpace(cidrStr))
		if err != nil {
			continue
		}
		f.trusted = append(f.trusted, cidr)
	}
	return f
}

// Compute hashes the user agent, the Accept family of headers and the client
// address into a hex SHA-256 digest.
func (f *Fingerprinter) Compute(r *http.Request) string {
	h := sha256.New()
	for _, part := range []string{
		r.UserAgent(),
		r.Header.Get("Accept"),
		r.Header.Get("Accept-Language"),
		r.Header.Get("Accept-Encoding"),
		f.ClientIP(r),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ClientIP returns the address of the caller. X-Forwarded-For and X-Real-IP
// are honoured only when the direct peer is a trusted proxy.
func (f *Fingerprinter) ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}

	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	if f.isTrustedProxy(remoteIP) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			parts := strings.Split(forwarded, ",")
			if first := strings.TrimSpace(parts[0]); first != "" {
				return first
			}
		}
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return strings.TrimSpace(realIP)
		}
	}
	return remoteIP
}

func (f *Fingerprinter) isTrustedProxy(ip string) bool {
	if len(f.trusted) == 0 {
		return false
	}
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}
	for _, cidr := range f.trusted {
		if cidr.Contains(parsedIP) {
			return true
		}
	}
	return false
}

// Middleware stores the fingerprint in the request context.
func (f *Fingerprinter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), fingerprintKey, f.Compute(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FingerprintFromContext returns the stored fingerprint or "none".
func FingerprintFromContext(ctx context.Context) string {
	if fp, ok := ctx.Value(fingerprintKey).(string); ok && fp != "" {
		return fp
	}
	return "none"
}

// IsClient reports whether the request carries the first-party marker.
func IsClient(r *http.Request) bool {
	_, ok := r.Header[http.CanonicalHeaderKey(ClientHeader)]
	return ok
}
