package currency

import "github.com/zalepa/vacstat/vacancy"

// Usage summarizes which currencies a dataset quotes salaries in and the
// months it covers.
type Usage struct {
	Counts      map[string]int
	First, Last Period
}

// UsageOf scans records. First and Last are zero when records is empty.
func UsageOf(records []vacancy.Record) Usage {
	u := Usage{Counts: make(map[string]int)}
	for i, rec := range records {
		u.Counts[rec.Salary.Currency]++
		p := PeriodOf(rec.Date)
		if i == 0 || p.Before(u.First) {
			u.First = p
		}
		if i == 0 || u.Last.Before(p) {
			u.Last = p
		}
	}
	return u
}

// Empty reports whether no record was scanned.
func (u Usage) Empty() bool {
	return u.First == Period{}
}
