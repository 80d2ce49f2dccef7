package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// Format is the on-disk layout of a tabular file.
type Format int

const (
	Delimited Format = iota
	Spreadsheet
)

func (f Format) String() string {
	switch f {
	case Delimited:
		return "delimited"
	case Spreadsheet:
		return "spreadsheet"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// DetectFormat picks the parser from the file extension: anything whose
// extension starts with "xls" (.xls, .xlsx, .xlsm) is a spreadsheet.
func DetectFormat(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	if len(ext) >= 4 && ext[1:4] == "xls" {
		return Spreadsheet
	}
	return Delimited
}

// Options are passed through unchanged from the caller to the parser.
type Options struct {
	// Separator between fields of a delimited file. Defaults to ','.
	Separator rune
	// Comment marks lines to ignore in a delimited file. Zero disables it.
	Comment rune
	// SkipRows drops this many leading lines or sheet rows before the header.
	SkipRows int
	// NoHeader treats the first row as data and names columns X0, X1, ...
	NoHeader bool
	// Sheet selects a spreadsheet sheet by name. Defaults to the first sheet.
	Sheet string
	// Columns overrides the column names.
	Columns []string
}

// Reader parses delimited text and spreadsheet files into data frames.
type Reader struct{}

// NewReader returns a ready to use Reader.
func NewReader() *Reader { return &Reader{} }

// Parse reads path in the given format.
func (r *Reader) Parse(path string, format Format, opts Options) (*dataframe.DataFrame, error) {
	var (
		df  dataframe.DataFrame
		err error
	)
	switch format {
	case Delimited:
		df, err = r.readDelimited(path, opts)
	case Spreadsheet:
		df, err = r.readSpreadsheet(path, opts)
	default:
		return nil, fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, err
	}
	if df.Err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), df.Err)
	}
	if df.Ncol() == 0 {
		return nil, fmt.Errorf("parse %s: no columns", filepath.Base(path))
	}
	return &df, nil
}

func (r *Reader) readDelimited(path string, opts Options) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if err := skipLines(br, opts.SkipRows); err != nil {
		return dataframe.DataFrame{}, err
	}

	sep := opts.Separator
	if sep == 0 {
		sep = ','
	}
	loadOpts := []dataframe.LoadOption{
		dataframe.WithDelimiter(sep),
		dataframe.HasHeader(!opts.NoHeader),
		dataframe.WithLazyQuotes(true),
	}
	if opts.Comment != 0 {
		loadOpts = append(loadOpts, dataframe.WithComments(opts.Comment))
	}
	if len(opts.Columns) > 0 {
		loadOpts = append(loadOpts, dataframe.Names(opts.Columns...))
	}
	data, err := io.ReadAll(br)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read: %w", err)
	}
	df := dataframe.ReadCSV(bytes.NewReader(data), loadOpts...)
	if df.Err != nil && !opts.NoHeader {
		if header, ok := soleRecord(data, sep, opts.Comment); ok {
			return headerOnly(header, opts), nil
		}
	}
	return df, nil
}

// soleRecord returns the only record of data, if it has exactly one.
func soleRecord(data []byte, sep, comment rune) ([]string, bool) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sep
	cr.Comment = comment
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil || len(records) != 1 {
		return nil, false
	}
	return records[0], true
}

// headerOnly builds a zero-row table with one string column per header
// name. gota refuses to load a header without data rows.
func headerOnly(header []string, opts Options) dataframe.DataFrame {
	names := header
	if len(opts.Columns) == len(header) {
		names = opts.Columns
	}
	cols := make([]series.Series, len(names))
	for i, name := range names {
		cols[i] = series.New([]string{}, series.String, name)
	}
	return dataframe.New(cols...)
}

func (r *Reader) readSpreadsheet(path string, opts Options) (dataframe.DataFrame, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return dataframe.DataFrame{}, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if opts.SkipRows > 0 {
		if opts.SkipRows >= len(rows) {
			return dataframe.DataFrame{}, fmt.Errorf("sheet %q has only %d rows", sheet, len(rows))
		}
		rows = rows[opts.SkipRows:]
	}
	rows = padRows(rows)
	if len(rows) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("sheet %q is empty", sheet)
	}

	if len(rows) == 1 && !opts.NoHeader {
		return headerOnly(rows[0], opts), nil
	}

	loadOpts := []dataframe.LoadOption{dataframe.HasHeader(!opts.NoHeader)}
	if len(opts.Columns) > 0 {
		loadOpts = append(loadOpts, dataframe.Names(opts.Columns...))
	}
	return dataframe.LoadRecords(rows, loadOpts...), nil
}

func skipLines(br *bufio.Reader, n int) error {
	for i := 0; i < n; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return fmt.Errorf("file has only %d lines", i)
			}
			return err
		}
	}
	return nil
}

// padRows drops trailing empty rows and pads short rows; GetRows trims
// trailing empty cells, which would leave the records ragged.
func padRows(rows [][]string) [][]string {
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}
		out[i] = row
	}
	return out
}
