package api

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"net/http"
	"sync"

	"sigs.k8s.io/yaml"
)

//go:embed openapi.yaml
var openAPIYAML []byte

// openAPIDocument converts the embedded YAML once and caches the result
// along with its ETag.
var openAPIDocument = sync.OnceValues(func() ([]byte, error) {
	return yaml.YAMLToJSON(openAPIYAML)
})

var openAPIETag = sync.OnceValue(func() string {
	sum := sha256.Sum256(openAPIYAML)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
})

// OpenAPIHandler serves the embedded API description as JSON.
func OpenAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		doc, err := openAPIDocument()
		if err != nil {
			http.Error(w, "openapi unavailable", http.StatusInternalServerError)
			return
		}

		etag := openAPIETag()
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "public, max-age=300")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(doc)
		}
	}
}
