package core

// streaming.go provides the reader chain every source file passes through
// before it reaches the delimited parser:
//
//   - BOMSkippingReader: drops a leading UTF-8 BOM written by Windows tools
//   - decoder: Latin-1 / Windows-1252 to UTF-8, or the lossy UTF-8 sanitizer
//   - CountingReader: tracks bytes read for progress logging
//
// Use WrapSource to apply them in the correct order.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Supported source encodings.
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF8Lossy   = "utf-8-lossy"
	EncodingLatin1      = "latin1"
	EncodingWindows1252 = "windows-1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NormalizeEncoding maps accepted spellings to one of the Encoding* names.
func NormalizeEncoding(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "utf-8-lossy", "utf8-lossy":
		return EncodingUTF8Lossy, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return EncodingLatin1, nil
	case "windows-1252", "cp1252":
		return EncodingWindows1252, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", name)
	}
}

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader. The first call discards a leading BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		head, err := r.br.Peek(len(utf8BOM))
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := r.br.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return r.br.Read(p)
}

// UTF8Sanitizer replaces invalid UTF-8 bytes with '?' on the fly.
// A multi-byte sequence split across reads is carried to the next chunk.
type UTF8Sanitizer struct {
	reader  io.Reader
	buf     []byte
	pending []byte // incomplete trailing rune from the previous chunk
	out     []byte // sanitized bytes not yet handed to the caller
	err     error
}

// NewUTF8Sanitizer creates a new streaming UTF-8 sanitizer.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{reader: r, buf: make([]byte, 32*1024)}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// fill reads one chunk from the underlying reader and sanitizes it into out.
func (s *UTF8Sanitizer) fill() {
	n, err := s.reader.Read(s.buf)
	data := append(s.pending, s.buf[:n]...)
	s.pending = nil
	s.err = err

	if err == nil {
		if tail := incompleteTail(data); tail > 0 {
			s.pending = append([]byte(nil), data[len(data)-tail:]...)
			data = data[:len(data)-tail]
		}
	}

	if utf8.Valid(data) {
		s.out = data
		return
	}

	out := make([]byte, 0, len(data))
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			out = append(out, '?')
			read++
			continue
		}
		out = append(out, data[read:read+size]...)
		read += size
	}
	s.out = out
}

// incompleteTail returns how many trailing bytes start a multi-byte rune
// that is not yet complete.
func incompleteTail(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b&0xC0 == 0x80 {
			continue // continuation byte
		}
		if b < 0xC0 {
			return 0
		}
		need := 2
		switch {
		case b >= 0xF0:
			need = 4
		case b >= 0xE0:
			need = 3
		}
		if i < need {
			return i
		}
		return 0
	}
	return 0
}

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // 0 if unknown
}

// NewCountingReader creates a counting reader with an optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{reader: r, Total: total}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}

// WrapSource applies BOM skipping, decoding and byte counting.
//
// The order matters: the BOM is stripped from the raw bytes, decoding
// happens next, and counting wraps everything. Strict UTF-8 is passed
// through unchanged; the parser rejects invalid sequences.
func WrapSource(r io.Reader, encoding string, totalSize int64) (*CountingReader, error) {
	enc, err := NormalizeEncoding(encoding)
	if err != nil {
		return nil, err
	}

	var src io.Reader = NewBOMSkippingReader(r)
	switch enc {
	case EncodingUTF8Lossy:
		src = NewUTF8Sanitizer(src)
	case EncodingLatin1:
		src = charmap.ISO8859_1.NewDecoder().Reader(src)
	case EncodingWindows1252:
		src = charmap.Windows1252.NewDecoder().Reader(src)
	}
	return NewCountingReader(src, totalSize), nil
}
