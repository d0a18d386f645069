package certs

import (
	"embed"
	"io/fs"
)

//go:embed bundled
var bundled embed.FS

// NewBundledLoader reads certificates compiled into the binary.
func NewBundledLoader() *Loader {
	sub, err := fs.Sub(bundled, "bundled")
	if err != nil {
		// The directory is embedded at build time.
		panic(err)
	}
	return NewLoader(sub)
}

// NewLoaderFor returns a loader for dir, or the bundled set when dir is empty.
func NewLoaderFor(dir string) *Loader {
	if dir == "" {
		return NewBundledLoader()
	}
	return NewDirLoader(dir)
}
