package core

// converter.go turns a delimited source export into a comma-separated cache
// file and loads that cache back as a Table.
//
// The flow is:
//
//  1. Convert checks the input exists, parses it with the source delimiter
//     and encoding, serializes the table into memory, then writes the output
//     through a temp file + rename so a partial file is never observable.
//  2. Load reads the cache when present, converting first when it is not.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/ratingprep/internal/logging"
)

// DefaultSourceDelimiter is the field separator of the raw export.
const DefaultSourceDelimiter = '|'

// Options is the immutable configuration of a Converter.
type Options struct {
	InputPath       string
	OutputPath      string
	SourceDelimiter rune   // Defaults to '|'
	Encoding        string // One of the Encoding* names; defaults to strict UTF-8
}

// Converter converts one input file to one output file.
// It holds no state beyond its Options and is safe to reuse.
type Converter struct {
	opts Options
}

// NewConverter validates options and returns a Converter.
func NewConverter(opts Options) (*Converter, error) {
	if opts.OutputPath == "" {
		return nil, errors.New("output path is required")
	}
	if opts.SourceDelimiter == 0 {
		opts.SourceDelimiter = DefaultSourceDelimiter
	}
	if !validDelimiter(opts.SourceDelimiter) {
		return nil, fmt.Errorf("invalid source delimiter %q", opts.SourceDelimiter)
	}
	enc, err := NormalizeEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	opts.Encoding = enc
	return &Converter{opts: opts}, nil
}

// Options returns the converter configuration.
func (c *Converter) Options() Options {
	return c.opts
}

// Convert parses the input file and writes it comma-delimited to the
// output path. Returns the output path on success.
//
// Errors wrap ErrNotFound (input missing), ErrParse (malformed input) or
// ErrWrite (output could not be persisted). No output is written unless
// parsing succeeded.
func (c *Converter) Convert(ctx context.Context) (string, error) {
	logger := logging.FromContext(ctx).With("input", c.opts.InputPath, "output", c.opts.OutputPath)
	start := time.Now()

	if c.opts.InputPath == "" {
		return "", fmt.Errorf("%w: no input path configured", ErrNotFound)
	}
	info, err := os.Stat(c.opts.InputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, c.opts.InputPath)
		}
		return "", fmt.Errorf("%w: %s not readable: %v", ErrParse, c.opts.InputPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrNotFound, c.opts.InputPath)
	}

	logger.Info("reading source", "bytes", info.Size(), "delimiter", string(c.opts.SourceDelimiter), "encoding", c.opts.Encoding)
	t, src, err := c.readSource(ctx, info.Size())
	if err != nil {
		return "", fmt.Errorf("read %s: %w", c.opts.InputPath, err)
	}
	logger.Info("source parsed", "rows", t.Len(), "columns", t.Width(),
		"bytes_read", src.BytesRead, "progress_pct", src.Progress())

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("convert cancelled: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteDelimited(&buf, t, ','); err != nil {
		return "", fmt.Errorf("%w: serialize: %v", ErrWrite, err)
	}
	if err := writeFileAtomic(c.opts.OutputPath, buf.Bytes()); err != nil {
		return "", err
	}

	logger.Info("conversion complete", "bytes_written", buf.Len(), "duration_ms", time.Since(start).Milliseconds())
	return c.opts.OutputPath, nil
}

// Load returns the comma-delimited cache as a raw Table, converting from the
// input first when the cache does not exist yet. Every failure wraps ErrLoad
// together with the underlying kind.
func (c *Converter) Load(ctx context.Context) (*Table, error) {
	logger := logging.FromContext(ctx).With("output", c.opts.OutputPath)

	if _, err := os.Stat(c.opts.OutputPath); errors.Is(err, fs.ErrNotExist) {
		logger.Info("cache not found, converting from source", "input", c.opts.InputPath)
		if _, err := c.Convert(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoad, err)
		}
	}

	f, err := os.Open(c.opts.OutputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w: %s", ErrLoad, ErrNotFound, c.opts.OutputPath)
		}
		return nil, fmt.Errorf("%w: %w: %s not readable: %v", ErrLoad, ErrParse, c.opts.OutputPath, err)
	}
	defer f.Close()

	src, err := WrapSource(f, EncodingUTF8, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	t, err := ReadDelimited(ctx, src, ReadOptions{Delimiter: ',', StrictUTF8: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, c.opts.OutputPath, err)
	}

	logger.Info("cache loaded", "rows", t.Len(), "columns", t.Width())
	return t, nil
}

// readSource parses the input file. The returned reader reports how much of
// the file was consumed.
func (c *Converter) readSource(ctx context.Context, size int64) (*Table, *CountingReader, error) {
	f, err := os.Open(c.opts.InputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, c.opts.InputPath)
		}
		return nil, nil, fmt.Errorf("%w: %s not readable: %v", ErrParse, c.opts.InputPath, err)
	}
	defer f.Close()

	src, err := WrapSource(f, c.opts.Encoding, size)
	if err != nil {
		return nil, nil, err
	}
	t, err := ReadDelimited(ctx, src, ReadOptions{
		Delimiter:  c.opts.SourceDelimiter,
		StrictUTF8: c.opts.Encoding == EncodingUTF8,
	})
	if err != nil {
		return nil, src, err
	}
	return t, src, nil
}

// ParseSource parses a delimited source stream with the given delimiter and
// encoding. Used by the HTTP surface where the source is a request body.
func ParseSource(ctx context.Context, r io.Reader, delimiter rune, encoding string) (*Table, error) {
	if delimiter == 0 {
		delimiter = DefaultSourceDelimiter
	}
	enc, err := NormalizeEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	src, err := WrapSource(r, enc, 0)
	if err != nil {
		return nil, err
	}
	return ReadDelimited(ctx, src, ReadOptions{Delimiter: delimiter, StrictUTF8: enc == EncodingUTF8})
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp in %s: %v", ErrWrite, dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	return nil
}

// WriteTableFile writes t comma-delimited to path atomically.
func WriteTableFile(path string, t *Table) error {
	var buf bytes.Buffer
	if err := WriteDelimited(&buf, t, ','); err != nil {
		return fmt.Errorf("%w: serialize: %v", ErrWrite, err)
	}
	return writeFileAtomic(path, buf.Bytes())
}
