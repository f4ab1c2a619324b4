package siteserver

import (
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// ErrNoIndex is returned when the website root has no index.html.
var ErrNoIndex = errors.New("siteserver: website root must contain index.html")

// noDirListingFS hides directories without an index.html, so
// http.FileServer answers 404 instead of listing them.
type noDirListingFS struct {
	fs fs.FS
}

func (n noDirListingFS) Open(name string) (fs.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	if !stat.IsDir() {
		return f, nil
	}

	if _, err := fs.Stat(n.fs, path.Join(name, "index.html")); err != nil {
		f.Close()
		return nil, fs.ErrNotExist
	}

	return f, nil
}

// staticFiles serves the website root. HTML responses are marked
// no-cache so every navigation sees the current fragment.
func staticFiles(root fs.FS) (http.Handler, error) {
	if _, err := fs.Stat(root, "index.html"); err != nil {
		return nil, ErrNoIndex
	}

	files := http.FileServerFS(noDirListingFS{fs: root})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; strings.HasSuffix(p, ".html") || strings.HasSuffix(p, "/") {
			w.Header().Set("Cache-Control", "no-cache")
		}

		files.ServeHTTP(w, r)
	}), nil
}
