package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// URLError describes why a configured URL was rejected.
type URLError struct {
	Field   string
	Message string
	URL     string
}

func (e URLError) Error() string {
	return fmt.Sprintf("%s: %s (url: %s)", e.Field, e.Message, e.URL)
}

// ValidateURL requires an absolute http(s) URL with a host. With
// requireHTTPS only https is accepted.
func ValidateURL(raw, field string, requireHTTPS bool) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return URLError{Field: field, Message: "invalid URL format", URL: raw}
	}
	scheme := strings.ToLower(parsed.Scheme)
	switch {
	case scheme == "":
		return URLError{Field: field, Message: "URL must include a scheme (http:// or https://)", URL: raw}
	case parsed.Host == "":
		return URLError{Field: field, Message: "URL must include a host", URL: raw}
	case scheme != "http" && scheme != "https":
		return URLError{Field: field, Message: "URL scheme must be http or https", URL: raw}
	case requireHTTPS && scheme != "https":
		return URLError{Field: field, Message: "URL must use HTTPS in production", URL: raw}
	}
	return nil
}

// ValidateOrigin checks a CORS origin: a URL made of scheme and host only.
func ValidateOrigin(raw, field string) error {
	if err := ValidateURL(raw, field, false); err != nil {
		return err
	}
	parsed, _ := url.Parse(raw)
	if parsed.Path != "" && parsed.Path != "/" {
		return URLError{Field: field, Message: "origin must not contain a path", URL: raw}
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return URLError{Field: field, Message: "origin must not contain a query or fragment", URL: raw}
	}
	return nil
}
