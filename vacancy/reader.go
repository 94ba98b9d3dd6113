package vacancy

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ErrMalformed is returned by Decode for rows that fail the structural
// validity filter or carry unparseable numbers or dates.
var ErrMalformed = errors.New("malformed vacancy row")

// publishedLayouts are tried in order when parsing published_at.
var publishedLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Header maps dataset column names to their positions.
type Header struct {
	names []string
	index map[string]int
}

// NewHeader builds a Header and checks that every required column exists.
func NewHeader(names []string) (Header, error) {
	h := Header{names: make([]string, len(names)), index: make(map[string]int, len(names))}
	for i, n := range names {
		n = strings.TrimSpace(n)
		h.names[i] = n
		h.index[n] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := h.index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return Header{}, fmt.Errorf("header is missing columns: %s", strings.Join(missing, ", "))
	}
	return h, nil
}

// Names returns the column names in file order.
func (h Header) Names() []string {
	return append([]string(nil), h.names...)
}

// Len returns the number of columns.
func (h Header) Len() int {
	return len(h.names)
}

// Index returns the position of a column, or -1.
func (h Header) Index(col string) int {
	if i, ok := h.index[col]; ok {
		return i
	}
	return -1
}

// Valid reports whether a row passes the structural filter: it has as many
// fields as the header, and every field is non-empty except that at most one
// of salary_from and salary_to may be blank.
func (h Header) Valid(row []string) bool {
	if len(row) != len(h.names) {
		return false
	}
	from, to := h.index[ColSalaryFrom], h.index[ColSalaryTo]
	blankBounds := 0
	for i, v := range row {
		if v != "" {
			continue
		}
		if i == from || i == to {
			blankBounds++
			continue
		}
		return false
	}
	return blankBounds <= 1
}

// Decode cleans the fields of row and converts it into a Record. Rows that
// fail Valid, or whose salary bounds or publication date do not parse, yield
// an error wrapping ErrMalformed.
func (h Header) Decode(row []string) (Record, error) {
	fields := make([]string, len(row))
	for i, v := range row {
		fields[i] = CleanField(v)
	}
	return h.DecodeClean(fields)
}

// DecodeClean is Decode for fields that already went through CleanField,
// such as the rows of a partition file. Cleaning is not idempotent, so
// written records must not be cleaned twice. fields is kept by the Record.
func (h Header) DecodeClean(fields []string) (Record, error) {
	if !h.Valid(fields) {
		return Record{}, ErrMalformed
	}

	from, err := parseAmount(fields[h.index[ColSalaryFrom]])
	if err != nil {
		return Record{}, fmt.Errorf("%w: salary_from: %v", ErrMalformed, err)
	}
	to, err := parseAmount(fields[h.index[ColSalaryTo]])
	if err != nil {
		return Record{}, fmt.Errorf("%w: salary_to: %v", ErrMalformed, err)
	}
	published, err := ParsePublished(fields[h.index[ColPublishedAt]])
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return Record{
		Name: fields[h.index[ColName]],
		Salary: Salary{
			From:     from,
			To:       to,
			Currency: fields[h.index[ColCurrency]],
		},
		AreaName:    fields[h.index[ColAreaName]],
		PublishedAt: published,
		Date:        civil.DateOf(published),
		Fields:      fields,
	}, nil
}

// ParsePublished parses a published_at value. The calendar date is kept in
// the value's own UTC offset.
func ParsePublished(s string) (time.Time, error) {
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized published_at %q", s)
}

func parseAmount(s string) (Amount, error) {
	if s == "" {
		return Amount{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Amount{}, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Amount{}, fmt.Errorf("non-finite amount %q", s)
	}
	if v < 0 {
		return Amount{}, fmt.Errorf("negative amount %q", s)
	}
	return Some(v), nil
}

// Reader reads raw vacancy rows from a CSV stream.
type Reader struct {
	Header Header
	csv    *csv.Reader
	line   int
}

// NewReader consumes the header row of r. A leading UTF-8 byte order mark is
// skipped.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	names, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty dataset: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h, err := NewHeader(names)
	if err != nil {
		return nil, err
	}
	return &Reader{Header: h, csv: cr, line: 1}, nil
}

// Read returns the next raw row, or io.EOF.
func (r *Reader) Read() ([]string, error) {
	row, err := r.csv.Read()
	if err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("line %d: %w", r.line+1, err)
	}
	r.line++
	return row, nil
}

// ReadAll returns every remaining raw row.
func (r *Reader) ReadAll() ([][]string, error) {
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// ReadFile reads the header and every row of a dataset file.
func ReadFile(path string) (Header, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r, err := NewReader(f)
	if err != nil {
		return Header{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return Header{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	return r.Header, rows, nil
}

// WriteFile writes a header and records to a CSV file, using each record's
// cleaned Fields.
func WriteFile(path string, h Header, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(h.Names()); err != nil {
		f.Close()
		return err
	}
	for _, rec := range records {
		if err := w.Write(rec.Fields); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
