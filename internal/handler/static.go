package handler

import (
	"net/http"
	"os"
	"path"
)

// NewStaticHandler serves files below dir at the web root. Directories
// without an index.html answer 404 rather than a listing.
func NewStaticHandler(dir string) http.Handler {
	return http.FileServer(noListingFS{http.Dir(dir)})
}

type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		index, err := n.fs.Open(path.Join(name, "index.html"))
		if err != nil {
			_ = f.Close()
			return nil, os.ErrNotExist
		}
		_ = index.Close()
	}
	return f, nil
}
