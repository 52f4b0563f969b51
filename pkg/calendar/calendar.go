// Package calendar counts business days for SLA and limitation windows.
package calendar

import "time"

// Calendar treats Saturday, Sunday and the configured holidays as non-working.
// Dates are compared in the calendar's location.
type Calendar struct {
	loc      *time.Location
	holidays map[civilDate]struct{}
}

type civilDate struct {
	y int
	m time.Month
	d int
}

func dateOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{y, m, d}
}

// New builds a calendar. A nil location means UTC.
func New(loc *time.Location, holidays ...time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	c := &Calendar{loc: loc, holidays: make(map[civilDate]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[dateOf(h.In(loc))] = struct{}{}
	}
	return c
}

// IsBusinessDay reports whether t falls on a working day.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	t = t.In(c.loc)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[dateOf(t)]
	return !holiday
}

// AddBusinessDays moves t forward by n working days, keeping the time of day.
func (c *Calendar) AddBusinessDays(t time.Time, n int) time.Time {
	t = t.In(c.loc)
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if c.IsBusinessDay(t) {
			n--
		}
	}
	return t
}

// BusinessDaysBetween counts working days in (from, to]. It returns 0 when
// to is not after from.
func (c *Calendar) BusinessDaysBetween(from, to time.Time) int {
	from, to = from.In(c.loc), to.In(c.loc)
	if !to.After(from) {
		return 0
	}
	n := 0
	end := dateOf(to)
	for d := from.AddDate(0, 0, 1); ; d = d.AddDate(0, 0, 1) {
		cd := dateOf(d)
		if after(cd, end) {
			break
		}
		if c.IsBusinessDay(d) {
			n++
		}
	}
	return n
}

// CalendarDaysBetween counts whole days elapsed from from to to.
func CalendarDaysBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}

func after(a, b civilDate) bool {
	if a.y != b.y {
		return a.y > b.y
	}
	if a.m != b.m {
		return a.m > b.m
	}
	return a.d > b.d
}
