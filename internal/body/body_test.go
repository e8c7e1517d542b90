package body_test

import (
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-httb/internal/body"
	"github.com/frankli0324/go-httb/internal/model"
)

func TestString(t *testing.T) {
	var h model.Header
	b, err := body.String("raw").Build(&h)
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))
	assert.Equal(t, 0, h.Len())
}

func TestFormRoundTrip(t *testing.T) {
	f := body.ParseForm("aaa=1&bbb=2&ccc=3")
	var h model.Header
	b, err := f.Build(&h)
	require.NoError(t, err)
	assert.Equal(t, "aaa=1&bbb=2&ccc=3", string(b))
	assert.Equal(t, body.FormURLEncoded, h.Get("content-type"))

	assert.Equal(t, "x=1", body.ParseForm("?x=1").Encode())
}

func TestFormBuilders(t *testing.T) {
	f := (&body.Form{}).
		Add("a", "1").
		AddArray("ids", []string{"7", "8"}).
		AddMap(map[string]string{"z": "26", "b": "2"})
	assert.Equal(t, "a=1&ids[]=7&ids[]=8&b=2&z=26", f.Encode())

	h := model.Header{{Key: "Content-Type", Value: "text/plain"}}
	_, err := f.Build(&h)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", h.Get("Content-Type"))
}

func TestMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("file content"), 0o600))

	m := body.NewMultipart().
		Field("name", "value").
		FilePath("upload", path, "").
		FileBytes("missing", "none.bin", nil, "")
	assert.True(t, strings.HasPrefix(m.Boundary(), "----HttbBoundary"))
	assert.Len(t, m.Boundary(), len("----HttbBoundary")+8)

	var h model.Header
	b, err := m.Build(&h)
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)
	assert.Equal(t, m.Boundary(), params["boundary"])
	assert.True(t, strings.HasSuffix(string(b), "--"+m.Boundary()+"--\r\n"))

	r := multipart.NewReader(strings.NewReader(string(b)), params["boundary"])
	p, err := r.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "name", p.FormName())
	assert.Equal(t, "text/plain", p.Header.Get("Content-Type"))
	data, _ := io.ReadAll(p)
	assert.Equal(t, "value", string(data))

	p, err = r.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "upload", p.FormName())
	assert.Equal(t, "hello.txt", p.FileName())
	assert.True(t, strings.HasPrefix(p.Header.Get("Content-Type"), "text/plain"))
	data, _ = io.ReadAll(p)
	assert.Equal(t, "file content", string(data))

	_, err = r.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMultipartMissingFile(t *testing.T) {
	m := body.NewMultipart().FilePath("f", filepath.Join(t.TempDir(), "nope"), "")
	var h model.Header
	_, err := m.Build(&h)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMultipartBoundaryPerInstance(t *testing.T) {
	assert.NotEqual(t, body.NewMultipart().Boundary(), body.NewMultipart().Boundary())
}
