package stats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zalepa/vacstat/vacancy"
)

// ErrUnsortedInput is returned when records of one year are not contiguous.
var ErrUnsortedInput = errors.New("records are not sorted by publication date")

// Partition is a contiguous run of records published in the same year.
type Partition struct {
	Year    int
	Records []vacancy.Record
}

// PartitionFile is a partition written to disk.
type PartitionFile struct {
	Year  int
	Path  string
	Count int
}

// Decoded is the outcome of filtering and decoding raw rows.
type Decoded struct {
	Records   []vacancy.Record
	Malformed int
}

// DecodeRows applies the structural validity filter to rows and decodes the
// survivors. Rejected rows are counted, never reported as errors.
func DecodeRows(h vacancy.Header, rows [][]string) Decoded {
	out := Decoded{Records: make([]vacancy.Record, 0, len(rows))}
	for _, row := range rows {
		rec, err := h.Decode(row)
		if err != nil {
			out.Malformed++
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

// SortByDate orders records by calendar date, then by instant. The sort is
// stable so records posted at the same moment keep their input order.
func SortByDate(records []vacancy.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		return a.PublishedAt.Before(b.PublishedAt)
	})
}

// Split groups records into contiguous runs by year. A record starts a
// new run whenever its year differs from the previous record's. Input must be
// ordered by date: a year that reappears after another year yields
// ErrUnsortedInput.
func Split(records []vacancy.Record) ([]Partition, error) {
	var parts []Partition
	closed := make(map[int]bool)
	for _, rec := range records {
		year := rec.Year()
		if n := len(parts); n > 0 && parts[n-1].Year == year {
			parts[n-1].Records = append(parts[n-1].Records, rec)
			continue
		}
		if closed[year] {
			return nil, fmt.Errorf("%w: year %d reappears after %d", ErrUnsortedInput, year, parts[len(parts)-1].Year)
		}
		if n := len(parts); n > 0 {
			closed[parts[n-1].Year] = true
		}
		parts = append(parts, Partition{Year: year, Records: []vacancy.Record{rec}})
	}
	return parts, nil
}

// PartitionRows filters and decodes rows, optionally sorts them by date, and
// splits them into per-year partitions.
func PartitionRows(h vacancy.Header, rows [][]string, sortFirst bool) ([]Partition, int, error) {
	d := DecodeRows(h, rows)
	if sortFirst {
		SortByDate(d.Records)
	}
	parts, err := Split(d.Records)
	if err != nil {
		return nil, d.Malformed, err
	}
	return parts, d.Malformed, nil
}

// PartitionFileName returns the file name used for a year's partition of the
// dataset at path: the dataset's base name with a "_<year>" suffix.
func PartitionFileName(path string, year int) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return fmt.Sprintf("%s_%d.csv", base, year)
}

// WritePartitions writes one CSV per partition into dir, each with the
// dataset header.
func WritePartitions(dir, dataset string, h vacancy.Header, parts []Partition) ([]PartitionFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create partition directory: %w", err)
	}
	files := make([]PartitionFile, 0, len(parts))
	for _, p := range parts {
		path := filepath.Join(dir, PartitionFileName(dataset, p.Year))
		if err := vacancy.WriteFile(path, h, p.Records); err != nil {
			return nil, fmt.Errorf("write partition %d: %w", p.Year, err)
		}
		files = append(files, PartitionFile{Year: p.Year, Path: path, Count: len(p.Records)})
	}
	return files, nil
}

// ReadPartition loads the records of a partition file. Its rows were cleaned
// before they were written and are decoded as they are.
func ReadPartition(path string) ([]vacancy.Record, error) {
	h, rows, err := vacancy.ReadFile(path)
	if err != nil {
		return nil, err
	}
	records := make([]vacancy.Record, 0, len(rows))
	for i, row := range rows {
		rec, err := h.DecodeClean(row)
		if err != nil {
			return nil, fmt.Errorf("partition row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
