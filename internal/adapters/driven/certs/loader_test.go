package certs

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_ReadCert(t *testing.T) {
	fsys := fstest.MapFS{
		"gateway.pem":      {Data: []byte("pem")},
		"backup.der":       {Data: []byte("der")},
		"exact":            {Data: []byte("raw")},
		"nested/inner.crt": {Data: []byte("crt")},
	}
	l := NewLoader(fsys)

	tests := []struct {
		name string
		want string
	}{
		{"gateway", "pem"},
		{"gateway.pem", "pem"},
		{"backup", "der"},
		{"exact", "raw"},
		{"nested/inner", "crt"},
		{"/nested/../gateway", "pem"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := l.ReadCert(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestLoader_ReadCert_Missing(t *testing.T) {
	l := NewLoader(fstest.MapFS{})

	_, err := l.ReadCert("gateway")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = l.ReadCert("")
	assert.Error(t, err)
}

func TestDirLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gateway.cer"), []byte("cer"), 0600))

	data, err := NewDirLoader(dir).ReadCert("gateway")
	require.NoError(t, err)
	assert.Equal(t, "cer", string(data))
}

func TestNewLoaderFor(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gw.crt"), []byte("crt"), 0o600))

	data, err := NewLoaderFor(dir).ReadCert("gw")
	require.NoError(t, err)
	assert.Equal(t, "crt", string(data))

	_, err = NewLoaderFor("").ReadCert("gw")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
