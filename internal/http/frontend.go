package http

import (
	"net/http"
	"path"
)

// frontend раздаёт статику SPA; неизвестные пути получают index.html,
// маршрутизацию страниц делает клиент.
func frontend(dir string) http.Handler {
	root := http.Dir(dir)
	fs := http.FileServer(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		if fileExists(root, path.Clean("/"+r.URL.Path)) {
			fs.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, path.Join(dir, "index.html"))
	})
}

func fileExists(root http.FileSystem, name string) bool {
	f, err := root.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return false
	}

	return !st.IsDir()
}
