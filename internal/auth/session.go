package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionCookieName is read by the admin frontend, so it is not HttpOnly.
	SessionCookieName = "_auth"
	// DevTokenHeader carries a session token when cookies are inconvenient
	// (API explorers, curl). Honoured outside production only.
	DevTokenHeader = "X-Dev-Token"

	DefaultSessionTTL = 24 * time.Hour
	sessionCookieTTL  = 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrCSRFMismatch = errors.New("csrf token mismatch")
)

// Session is the verified payload of a session token.
type Session struct {
	SubjectID  string
	CSRFSecret string
}

// sessionClaims uses pointers so that a missing or non-string id/csrfToken
// fails decoding instead of silently becoming "".
type sessionClaims struct {
	ID        *string `json:"id"`
	CSRFToken *string `json:"csrfToken"`
	jwt.RegisteredClaims
}

// SessionCodec signs and verifies stateless admin session tokens.
type SessionCodec struct {
	secret []byte
	now    func() time.Time
}

func NewSessionCodec(secret string) *SessionCodec {
	return &SessionCodec{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue returns a signed token for subjectID carrying csrfSecret. A
// non-positive ttl falls back to DefaultSessionTTL.
func (c *SessionCodec) Issue(subjectID, csrfSecret string, ttl time.Duration) (string, error) {
	if subjectID == "" || csrfSecret == "" {
		return "", ErrInvalidToken
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	now := c.now()
	claims := &sessionClaims{
		ID:        &subjectID,
		CSRFToken: &csrfSecret,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify reports whether token is a well-formed, correctly signed,
// unexpired session token. Every failure yields the same false result.
func (c *SessionCodec) Verify(tokenString string) (Session, bool) {
	if strings.TrimSpace(tokenString) == "" {
		return Session{}, false
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(c.now))
	if err != nil {
		return Session{}, false
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.ID == nil || claims.CSRFToken == nil {
		return Session{}, false
	}
	return Session{SubjectID: *claims.ID, CSRFSecret: *claims.CSRFToken}, true
}

// FromRequest verifies the session cookie. When that does not produce a
// valid session and allowDevHeader is set, the X-Dev-Token header is tried.
func (c *SessionCodec) FromRequest(r *http.Request, allowDevHeader bool) (Session, bool) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if session, ok := c.Verify(cookie.Value); ok {
			return session, true
		}
	}
	if !allowDevHeader {
		return Session{}, false
	}
	return c.Verify(r.Header.Get(DevTokenHeader))
}

func SessionCookie(token string, now time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(sessionCookieTTL),
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	}
}

func ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	}
}

// CheckCSRF accepts supplied only when it is non-empty and equals the
// secret embedded in the session.
func CheckCSRF(sessionSecret, supplied string) error {
	if supplied == "" || sessionSecret == "" {
		return ErrCSRFMismatch
	}
	if subtle.ConstantTimeCompare([]byte(sessionSecret), []byte(supplied)) != 1 {
		return ErrCSRFMismatch
	}
	return nil
}
