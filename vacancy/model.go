package vacancy

import (
	"time"

	"cloud.google.com/go/civil"
)

// Column names of the vacancy dataset.
const (
	ColName        = "name"
	ColSalaryFrom  = "salary_from"
	ColSalaryTo    = "salary_to"
	ColCurrency    = "salary_currency"
	ColAreaName    = "area_name"
	ColPublishedAt = "published_at"
)

// RequiredColumns lists the columns every dataset header must contain.
var RequiredColumns = []string{
	ColName, ColSalaryFrom, ColSalaryTo, ColCurrency, ColAreaName, ColPublishedAt,
}

// Record is a single decoded vacancy posting.
type Record struct {
	Name        string     `json:"name"`
	Salary      Salary     `json:"salary"`
	AreaName    string     `json:"areaName"`
	PublishedAt time.Time  `json:"publishedAt"`
	Date        civil.Date `json:"date"`

	// Fields holds the cleaned CSV fields in header order so that the
	// record can be written back out unchanged.
	Fields []string `json:"-"`
}

// Year returns the calendar year the vacancy was published in.
func (r Record) Year() int {
	return r.Date.Year
}

// Salary is the raw salary fork of a posting in its own currency.
type Salary struct {
	From     Amount `json:"from"`
	To       Amount `json:"to"`
	Currency string `json:"currency"`
}

// Amount is an optional salary bound.
type Amount struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Some returns a present Amount.
func Some(v float64) Amount {
	return Amount{Value: v, Valid: true}
}
