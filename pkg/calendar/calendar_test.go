package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 2026-03-06 is a Friday.
var friday = time.Date(2026, 3, 6, 15, 0, 0, 0, time.UTC)

func TestAddBusinessDays(t *testing.T) {
	c := New(nil)

	t.Run("skips the weekend", func(t *testing.T) {
		got := c.AddBusinessDays(friday, 2)
		assert.Equal(t, time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC), got)
	})

	t.Run("skips holidays", func(t *testing.T) {
		withHoliday := New(nil, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))
		got := withHoliday.AddBusinessDays(friday, 1)
		assert.Equal(t, time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC), got)
	})

	t.Run("zero days is identity", func(t *testing.T) {
		assert.Equal(t, friday, c.AddBusinessDays(friday, 0))
	})
}

func TestBusinessDaysBetween(t *testing.T) {
	c := New(nil)

	assert.Equal(t, 0, c.BusinessDaysBetween(friday, friday))
	assert.Equal(t, 0, c.BusinessDaysBetween(friday, friday.Add(-time.Hour)))
	assert.Equal(t, 0, c.BusinessDaysBetween(friday, friday.AddDate(0, 0, 2)), "saturday and sunday")
	assert.Equal(t, 1, c.BusinessDaysBetween(friday, friday.AddDate(0, 0, 3)))
	assert.Equal(t, 5, c.BusinessDaysBetween(friday, friday.AddDate(0, 0, 7)))
}

func TestBusinessDaysBetween_InvertsAddBusinessDays(t *testing.T) {
	c := New(nil, time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC))
	for n := range 15 {
		assert.Equal(t, n, c.BusinessDaysBetween(friday, c.AddBusinessDays(friday, n)), "n=%d", n)
	}
}

func TestCalendarDaysBetween(t *testing.T) {
	assert.Equal(t, 3, CalendarDaysBetween(friday, friday.AddDate(0, 0, 3)))
	assert.Equal(t, 0, CalendarDaysBetween(friday, friday.Add(-time.Hour)))
}
