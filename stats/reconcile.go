package stats

// Reconcile returns copies of avg and count that hold an entry for every year
// in years. Years without data are filled with 0 in both series.
func Reconcile(years []int, avg, count YearSeries) (YearSeries, YearSeries) {
	outAvg := make(YearSeries, len(years))
	outCount := make(YearSeries, len(years))
	for y, v := range avg {
		outAvg[y] = v
	}
	for y, v := range count {
		outCount[y] = v
	}
	for _, y := range years {
		if _, ok := outAvg[y]; !ok {
			outAvg[y] = 0
		}
		if _, ok := outCount[y]; !ok {
			outCount[y] = 0
		}
	}
	return outAvg, outCount
}

// Statistics are the year-aligned results of a run.
type Statistics struct {
	Profession string `json:"profession"`

	Salary           YearSeries `json:"salary"`
	Count            YearSeries `json:"count"`
	ProfessionSalary YearSeries `json:"professionSalary"`
	ProfessionCount  YearSeries `json:"professionCount"`
}

// Row is one year of Statistics.
type Row struct {
	Year             int `json:"year"`
	Salary           int `json:"salary"`
	ProfessionSalary int `json:"professionSalary"`
	Count            int `json:"count"`
	ProfessionCount  int `json:"professionCount"`
}

// NewStatistics builds reconciled statistics from a merged Partial.
func NewStatistics(profession string, p Partial) Statistics {
	salary, count, profSalary, profCount := p.Series()
	profSalary, profCount = Reconcile(salary.Years(), profSalary, profCount)
	return Statistics{
		Profession:       profession,
		Salary:           salary,
		Count:            count,
		ProfessionSalary: profSalary,
		ProfessionCount:  profCount,
	}
}

// Years returns the years of the overall series, ascending.
func (s Statistics) Years() []int {
	return s.Salary.Years()
}

// Empty reports whether no year has data.
func (s Statistics) Empty() bool {
	return len(s.Salary) == 0
}

// Rows returns one Row per year of the overall series, ascending.
func (s Statistics) Rows() []Row {
	years := s.Years()
	rows := make([]Row, len(years))
	for i, y := range years {
		rows[i] = Row{
			Year:             y,
			Salary:           s.Salary[y],
			ProfessionSalary: s.ProfessionSalary[y],
			Count:            s.Count[y],
			ProfessionCount:  s.ProfessionCount[y],
		}
	}
	return rows
}
