package body

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"math/big"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/frankli0324/go-httb/internal/model"
)

const (
	boundaryPrefix = "----HttbBoundary"
	boundaryChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	defaultType    = "text/plain"
)

type part struct {
	name        string
	filename    string
	contentType string
	data        []byte
	path        string // read while building when set
}

// Multipart is a multipart/form-data body. The boundary is chosen once
// per instance.
type Multipart struct {
	boundary string
	parts    []part
	log      zerolog.Logger
}

func NewMultipart() *Multipart {
	return &Multipart{boundary: boundaryPrefix + randomString(8), log: zerolog.Nop()}
}

func randomString(n int) string {
	var sb strings.Builder
	limit := big.NewInt(int64(len(boundaryChars)))
	for i := 0; i < n; i++ {
		j, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(err)
		}
		sb.WriteByte(boundaryChars[j.Int64()])
	}
	return sb.String()
}

// WithLogger sets the logger used to report skipped parts.
func (m *Multipart) WithLogger(l zerolog.Logger) *Multipart {
	m.log = l
	return m
}

func (m *Multipart) Boundary() string { return m.boundary }

func (m *Multipart) ContentType() string {
	return "multipart/form-data; boundary=" + m.boundary
}

// Field adds an inline text value.
func (m *Multipart) Field(name, value string) *Multipart {
	m.parts = append(m.parts, part{name: name, data: []byte(value)})
	return m
}

// FieldType adds an inline value with an explicit content type.
func (m *Multipart) FieldType(name, value, contentType string) *Multipart {
	m.parts = append(m.parts, part{name: name, data: []byte(value), contentType: contentType})
	return m
}

// FileBytes adds a file whose content is already in memory. An empty
// contentType is detected from data.
func (m *Multipart) FileBytes(name, filename string, data []byte, contentType string) *Multipart {
	m.parts = append(m.parts, part{name: name, filename: filename, data: data, contentType: contentType})
	return m
}

// FilePath adds a file that is read from disk only when the body is
// built.
func (m *Multipart) FilePath(name, path, contentType string) *Multipart {
	m.parts = append(m.parts, part{name: name, filename: filepath.Base(path), path: path, contentType: contentType})
	return m
}

func (m *Multipart) Len() int { return len(m.parts) }

func (m *Multipart) Build(h *model.Header) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(m.boundary); err != nil {
		return nil, err
	}
	for _, p := range m.parts {
		data := p.data
		if p.path != "" {
			var err error
			if data, err = os.ReadFile(p.path); err != nil {
				return nil, fmt.Errorf("multipart %q: %w", p.name, err)
			}
		}
		if data == nil {
			m.log.Warn().Str("part", p.name).Msg("multipart part has no body, skipped")
			continue
		}
		ph := make(textproto.MIMEHeader)
		disposition := fmt.Sprintf(`form-data; name="%s"`, escapeQuotes(p.name))
		if p.filename != "" {
			disposition += fmt.Sprintf(`; filename="%s"`, escapeQuotes(p.filename))
		}
		ph.Set("Content-Disposition", disposition)
		ph.Set("Content-Type", p.typeOf(data))
		pw, err := w.CreatePart(ph)
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write(data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	h.Set("Content-Type", m.ContentType())
	return buf.Bytes(), nil
}

func (p part) typeOf(data []byte) string {
	switch {
	case p.contentType != "":
		return p.contentType
	case p.filename != "":
		return mimetype.Detect(data).String()
	}
	return defaultType
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
