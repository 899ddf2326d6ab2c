package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SPAHandler serves the built frontend from dir. Paths that do not name a
// file fall back to index.html so client-side routes survive a reload.
func SPAHandler(dir string) http.Handler {
	if dir == "" {
		return http.NotFoundHandler()
	}
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		name := path.Clean("/" + r.URL.Path)
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(name, "/"))))
		switch {
		case err == nil && !info.IsDir():
			files.ServeHTTP(w, r)
		case err == nil || errors.Is(err, fs.ErrNotExist):
			if _, statErr := os.Stat(index); statErr != nil {
				http.NotFound(w, r)
				return
			}
			http.ServeFile(w, r, index)
		default:
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})
}
