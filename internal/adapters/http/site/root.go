// Package site serves the embedded SCool frontend.
package site

import (
	"context"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

const indexFile = "index.html"

// Register attaches the frontend routes to mux. "/" serves the static files;
// "/app" and everything below it fall back to index.html for client routing.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	h := NewRootHandler()
	mux.Handle("/", h.files)
	mux.HandleFunc("/app", h.HandleApp)
	mux.HandleFunc("/app/", h.HandleApp)
}

// RootHandler serves the embedded files.
type RootHandler struct {
	fsys  http.FileSystem
	files http.Handler
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	fsys := FS()
	return &RootHandler{fsys: fsys, files: http.FileServer(fsys)}
}

// HandleApp serves a real asset under /app/ when one exists and index.html
// otherwise.
func (h *RootHandler) HandleApp(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/app")
	name = strings.TrimPrefix(name, "/")
	if name != "" && h.isFile(name) {
		r2 := r.Clone(r.Context())
		r2.URL.Path = "/" + name
		h.files.ServeHTTP(w, r2)
		return
	}
	h.serveIndex(w, r)
}

func (h *RootHandler) isFile(name string) bool {
	f, err := h.fsys.Open("/" + name)
	if err != nil {
		return false
	}
	defer f.Close()
	st, err := f.Stat()
	return err == nil && !st.IsDir()
}

func (h *RootHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(staticFS, "static/"+indexFile)
	if err != nil {
		http.Error(w, "frontend not built", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}
