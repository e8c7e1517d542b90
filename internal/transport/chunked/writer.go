package chunked

import (
	"fmt"
	"io"
)

// NewWriter is taken from golang src/net/http/internal/chunked.go.
// The client never sends chunked bodies, the writer produces test
// fixtures and server side payloads.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w}
}

type Writer struct {
	Wire io.Writer
}

func (cw *Writer) Write(data []byte) (n int, err error) {
	// Don't send 0-length data. It looks like EOF for chunked encoding.
	if len(data) == 0 {
		return 0, nil
	}

	if _, err = fmt.Fprintf(cw.Wire, "%x\r\n", len(data)); err != nil {
		return 0, err
	}
	if n, err = cw.Wire.Write(data); err != nil {
		return
	}
	if n != len(data) {
		err = io.ErrShortWrite
		return
	}
	_, err = io.WriteString(cw.Wire, "\r\n")
	return
}

// Close writes the last chunk and an empty trailer section.
func (cw *Writer) Close() error {
	n, err := io.WriteString(cw.Wire, "0\r\n\r\n")
	if err == nil && n != 5 {
		return io.ErrShortWrite
	}
	return err
}
