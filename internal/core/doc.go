// Package core provides the conversion and type normalization logic for
// delimited rating exports.
//
// The package has no transport dependencies. The CLI, the HTTP server and
// tests all drive it the same way.
//
// # Conversion
//
// A [Converter] reads one pipe-delimited source file and writes it back
// comma-delimited, with a header row and no index column:
//
//	c, _ := core.NewConverter(core.Options{
//	    InputPath:  "data/MachineLearningRating_v3.txt",
//	    OutputPath: "data/MachineLearningRating_v3.csv",
//	})
//	t, err := c.Load(ctx) // converts first when the .csv is missing
//
// Every source passes through [WrapSource]: the UTF-8 BOM is dropped, the
// selected encoding is decoded and bytes are counted for progress logging.
// Output is written to a temp file and renamed, so a failed run never
// leaves a partial cache behind.
//
// # Normalization
//
// A [Catalog] binds column names to rule kinds. Catalogs are registered at
// init time with [Register]; the motor insurance layout lives in the
// catalogs subpackage. A [Normalizer] applies the rules group by group:
//
//	date -> float -> prefix float -> nullable int -> binary int -> categorical
//
// then drops columns that are entirely missing. Cells that fail to coerce
// become missing; a bad cell never aborts a column.
//
// # Error Handling
//
// Failures wrap one of the kinds in errors.go ([ErrNotFound], [ErrParse],
// [ErrWrite], [ErrLoad], [ErrUnknownCatalog]). [MapError] turns any error
// into a coded user message:
//
//   - FILE001-FILE006: input, encoding, parse and write failures
//   - CAT001: unknown catalog
//   - JOB001-JOB003: busy, cancelled, timed out
//   - DB001-DB004: export database failures
package core
