package core

import (
	"regexp"
	"time"
)

// MonthInfo binds a calendar month to the pattern recognising it in chat
// text and to its display name.
type MonthInfo struct {
	Month   time.Month
	Pattern *regexp.Regexp
	Name    string
}

// Months is ordered by calendar month. Patterns cover the common Russian
// inflections ("январь", "января", "январе").
var Months = [12]MonthInfo{
	{time.January, regexp.MustCompile(`(?i)январ[яеь]`), "Январь"},
	{time.February, regexp.MustCompile(`(?i)феврал[яеь]`), "Февраль"},
	{time.March, regexp.MustCompile(`(?i)март[ае]?`), "Март"},
	{time.April, regexp.MustCompile(`(?i)апрел[яеь]`), "Апрель"},
	{time.May, regexp.MustCompile(`(?i)ма[йяе]`), "Май"},
	{time.June, regexp.MustCompile(`(?i)июн[яеь]`), "Июнь"},
	{time.July, regexp.MustCompile(`(?i)июл[яеь]`), "Июль"},
	{time.August, regexp.MustCompile(`(?i)август[ае]?`), "Август"},
	{time.September, regexp.MustCompile(`(?i)сентябр[яеь]`), "Сентябрь"},
	{time.October, regexp.MustCompile(`(?i)октябр[яеь]`), "Октябрь"},
	{time.November, regexp.MustCompile(`(?i)ноябр[яеь]`), "Ноябрь"},
	{time.December, regexp.MustCompile(`(?i)декабр[яеь]`), "Декабрь"},
}

// MonthName returns the display name of m, or "" when m is out of range.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return Months[m-1].Name
}

// ValidMonth reports whether m is a calendar month.
func ValidMonth(m time.Month) bool {
	return m >= time.January && m <= time.December
}
