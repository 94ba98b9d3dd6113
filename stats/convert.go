package stats

import (
	"encoding/csv"
	"errors"
	"io"

	"github.com/zalepa/vacstat/currency"
	"github.com/zalepa/vacstat/vacancy"
)

// SalaryColumn holds the normalized salary in converted output.
const SalaryColumn = "salary"

// Conversion counts the rows handled by WriteConverted.
type Conversion struct {
	Written int
	Dropped int
}

// WriteConverted writes records with the three salary columns replaced by a
// single normalized salary column appended at the end. Records whose salary
// cannot be normalized are dropped. A positive limit caps the rows written.
func WriteConverted(w io.Writer, h vacancy.Header, records []vacancy.Record, n Normalizer, limit int) (Conversion, error) {
	salaryCols := map[int]bool{
		h.Index(vacancy.ColSalaryFrom): true,
		h.Index(vacancy.ColSalaryTo):   true,
		h.Index(vacancy.ColCurrency):   true,
	}
	var header []string
	for i, name := range h.Names() {
		if !salaryCols[i] {
			header = append(header, name)
		}
	}
	header = append(header, SalaryColumn)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return Conversion{}, err
	}

	var c Conversion
	for _, rec := range records {
		if limit > 0 && c.Written == limit {
			break
		}
		salary, err := n.Normalize(rec.Salary, rec.Date)
		switch {
		case err == nil:
		case errors.Is(err, currency.ErrNoSalary), errors.Is(err, currency.ErrUnresolvableRate):
			c.Dropped++
			continue
		default:
			return c, err
		}

		row := make([]string, 0, len(header))
		for i, field := range rec.Fields {
			if !salaryCols[i] {
				row = append(row, field)
			}
		}
		row = append(row, salary.String())
		if err := cw.Write(row); err != nil {
			return c, err
		}
		c.Written++
	}
	cw.Flush()
	return c, cw.Error()
}
