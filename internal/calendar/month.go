package calendar

import (
	"strconv"
	"time"
)

// DaysPerWeek is the number of columns in a month grid.
const DaysPerWeek = 7

// Month is a derived month grid. Month0 is zero-based (0 = January),
// weeks start on Sunday.
type Month struct {
	Year               int
	Month0             int
	DaysInMonth        int
	FirstWeekdayOffset int
}

// NewMonth builds the grid for year and a zero-based month. Out-of-range
// months roll over the way time.Date normalizes them: -1 is December of the
// previous year, 12 is January of the next.
func NewMonth(year, month0 int) Month {
	first := time.Date(year, time.Month(month0+1), 1, 0, 0, 0, 0, time.UTC)
	// day 0 of the following month is the last day of this one
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, time.UTC)

	return Month{
		Year:               first.Year(),
		Month0:             int(first.Month()) - 1,
		DaysInMonth:        last.Day(),
		FirstWeekdayOffset: int(first.Weekday()),
	}
}

// MonthOf returns the grid containing d.
func MonthOf(d Date) Month {
	return NewMonth(d.Year, int(d.Month)-1)
}

// Cells returns the grid flattened row by row. Zero marks an empty cell.
// The length is always a multiple of DaysPerWeek.
func (m Month) Cells() []int {
	total := m.FirstWeekdayOffset + m.DaysInMonth
	if rem := total % DaysPerWeek; rem != 0 {
		total += DaysPerWeek - rem
	}

	cells := make([]int, total)
	for day := 1; day <= m.DaysInMonth; day++ {
		cells[m.FirstWeekdayOffset+day-1] = day
	}
	return cells
}

// Weeks splits Cells into rows of DaysPerWeek.
func (m Month) Weeks() [][]int {
	cells := m.Cells()
	weeks := make([][]int, 0, len(cells)/DaysPerWeek)
	for i := 0; i < len(cells); i += DaysPerWeek {
		weeks = append(weeks, cells[i:i+DaysPerWeek])
	}
	return weeks
}

// Prev returns the previous month.
func (m Month) Prev() Month {
	return NewMonth(m.Year, m.Month0-1)
}

// Next returns the following month.
func (m Month) Next() Month {
	return NewMonth(m.Year, m.Month0+1)
}

// Date returns the calendar date of a day in this month.
func (m Month) Date(day int) Date {
	return Date{Year: m.Year, Month: time.Month(m.Month0 + 1), Day: day}
}

// Contains reports whether d falls inside the month.
func (m Month) Contains(d Date) bool {
	return d.Year == m.Year && int(d.Month)-1 == m.Month0
}

// Title renders e.g. "March 2024".
func (m Month) Title() string {
	return time.Month(m.Month0+1).String() + " " + strconv.Itoa(m.Year)
}
