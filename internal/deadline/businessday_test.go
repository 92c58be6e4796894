package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 2023-08-14 is a Monday.
var monday = time.Date(2023, 8, 14, 0, 0, 0, 0, time.UTC)

func TestNextBusinessDay_Weekdays(t *testing.T) {
	tuesday := monday.AddDate(0, 0, 1)
	assert.Equal(t, tuesday, NextBusinessDay(monday))
}

func TestNextBusinessDay_FridayToMonday(t *testing.T) {
	friday := monday.AddDate(0, 0, 4)
	followingMonday := monday.AddDate(0, 0, 7)
	assert.Equal(t, followingMonday, NextBusinessDay(friday))
}

func TestNextBusinessDay_SaturdayToMonday(t *testing.T) {
	saturday := monday.AddDate(0, 0, 5)
	followingMonday := monday.AddDate(0, 0, 7)
	assert.Equal(t, followingMonday, NextBusinessDay(saturday))
}

func TestNextBusinessDay_SundayToMonday(t *testing.T) {
	sunday := monday.AddDate(0, 0, 6)
	followingMonday := monday.AddDate(0, 0, 7)
	assert.Equal(t, followingMonday, NextBusinessDay(sunday))
}

func TestAddBusinessDays_FullWeek(t *testing.T) {
	followingMonday := monday.AddDate(0, 0, 7)
	assert.Equal(t, followingMonday, AddBusinessDays(monday, 5))
}

func TestAddBusinessDays_Zero(t *testing.T) {
	assert.Equal(t, monday, AddBusinessDays(monday, 0))
}

func TestAddBusinessDays_FifteenFromWednesday(t *testing.T) {
	wednesday := monday.AddDate(0, 0, 2)
	// 15 business days = 3 full weeks.
	assert.Equal(t, wednesday.AddDate(0, 0, 21), AddBusinessDays(wednesday, 15))
}
