package core

// delimited.go reads and writes delimited text tables.
//
// The first record is the header. Every data record must have the same number
// of fields as the header; a mismatch is a parse error naming the line.
// Quoting follows RFC 4180 with bare quotes tolerated inside unquoted fields,
// which is how most pipe-delimited exports are produced.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ContextCheckInterval is how often (in rows) to check for context cancellation.
var ContextCheckInterval = 1000

// ReadOptions controls ReadDelimited.
type ReadOptions struct {
	Delimiter rune
	// StrictUTF8 rejects fields containing invalid UTF-8 with ErrParse.
	StrictUTF8 bool
}

// ReadDelimited parses a whole delimited stream into a raw Table.
func ReadDelimited(ctx context.Context, r io.Reader, opts ReadOptions) (*Table, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if !validDelimiter(opts.Delimiter) {
		return nil, fmt.Errorf("%w: invalid delimiter %q", ErrParse, opts.Delimiter)
	}

	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	cr.LazyQuotes = true
	cr.ReuseRecord = false
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input, no header row", ErrParse)
	}
	if err != nil {
		return nil, wrapCSVError(err)
	}
	if opts.StrictUTF8 {
		if err := checkUTF8(header, 1); err != nil {
			return nil, err
		}
	}

	var rows [][]string
	for {
		if len(rows)%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("read cancelled at row %d: %w", len(rows)+1, err)
			}
		}

		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapCSVError(err)
		}
		if opts.StrictUTF8 {
			line, _ := cr.FieldPos(0)
			if err := checkUTF8(rec, line); err != nil {
				return nil, err
			}
		}
		rows = append(rows, rec)
	}

	return NewTable(header, rows)
}

// WriteDelimited writes the table with a header row and no index column.
func WriteDelimited(w io.Writer, t *Table, delimiter rune) error {
	if delimiter == 0 {
		delimiter = ','
	}
	if !validDelimiter(delimiter) {
		return fmt.Errorf("invalid delimiter %q", delimiter)
	}

	cw := csv.NewWriter(w)
	cw.Comma = delimiter

	if err := cw.Write(t.Header()); err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		rec := t.Record(i)
		if len(rec) == 1 && rec[0] == "" {
			// A bare empty line is skipped by readers, so quote the empty field.
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\"\"\n"); err != nil {
				return err
			}
			continue
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseDelimiter converts a configured delimiter string to a rune.
// Accepts a single character or the names "pipe", "comma", "tab" and "semicolon".
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "pipe":
		return '|', nil
	case "comma":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	case "semicolon":
		return ';', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || !validDelimiter(r) {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

func validDelimiter(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

func checkUTF8(fields []string, line int) error {
	for i, f := range fields {
		if !utf8.ValidString(f) {
			return fmt.Errorf("%w: line %d, field %d: invalid UTF-8 (set SOURCE_ENCODING)", ErrParse, line, i+1)
		}
	}
	return nil
}

// wrapCSVError tags encoding/csv errors as ErrParse, keeping line detail.
func wrapCSVError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("%w: line %d, column %d: %v", ErrParse, pe.Line, pe.Column, pe.Err)
	}
	return fmt.Errorf("%w: %v", ErrParse, err)
}
