// Package certs loads pinned gateway certificates by name.
package certs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/custodia-labs/replisync/internal/core/ports/driven"
)

// extensions tried, in order, when a name has none of its own.
var extensions = []string{".pem", ".crt", ".cer", ".der"}

// Loader reads certificate resources from a filesystem.
type Loader struct {
	fsys fs.FS
}

var _ driven.CertificateLoader = (*Loader)(nil)

// NewLoader reads certificates from fsys, which may be an embed.FS.
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// NewDirLoader reads certificates from a directory on disk.
func NewDirLoader(dir string) *Loader {
	return NewLoader(os.DirFS(dir))
}

// ReadCert returns the raw bytes of the named certificate. The name is
// tried as given and then with each known certificate extension.
func (l *Loader) ReadCert(name string) ([]byte, error) {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" || name == "." {
		return nil, fmt.Errorf("empty certificate name")
	}

	candidates := []string{name}
	if path.Ext(name) == "" {
		for _, ext := range extensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, candidate := range candidates {
		data, err := fs.ReadFile(l.fsys, candidate)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading certificate %s: %w", candidate, err)
		}
	}
	return nil, fmt.Errorf("certificate %q: %w", name, fs.ErrNotExist)
}
