// Package tariff assigns Italian ARERA time-of-use bands (F1/F2/F3) to
// hourly indices. F1 covers weekday peak hours, F2 weekday shoulder hours
// and Saturday daytime, F3 nights, Sundays and national holidays.
package tariff

import "time"

// Band identifies an ARERA time-of-use band.
type Band int

const (
	F1 Band = iota + 1 // Mon-Fri 08:00-19:00
	F2                 // Mon-Fri 07:00-08:00 and 19:00-23:00, Sat 07:00-23:00
	F3                 // nights, Sundays, holidays
)

// BandAt returns the band of the given timestamp.
func BandAt(ts time.Time) Band {
	d := ts.Weekday()
	h := ts.Hour()

	if d == time.Sunday || isHoliday(ts) {
		return F3
	}
	if d == time.Saturday {
		if h >= 7 && h < 23 {
			return F2
		}
		return F3
	}
	switch {
	case h >= 8 && h < 19:
		return F1
	case h >= 7 && h < 23:
		return F2
	default:
		return F3
	}
}

// Prices maps each hour index of the given year onto its band price.
// Hour 0 is midnight of January 1st; prices are in the caller's unit.
func Prices(year int, hours int, f1, f2, f3 float64) []float64 {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make([]float64, hours)
	for i := 0; i < hours; i++ {
		switch BandAt(start.Add(time.Duration(i) * time.Hour)) {
		case F1:
			out[i] = f1
		case F2:
			out[i] = f2
		default:
			out[i] = f3
		}
	}
	return out
}

// isHoliday reports whether the date is an Italian national holiday.
// Holidays take the off-peak band for the whole day, like Sundays.
func isHoliday(ts time.Time) bool {
	y, m, d := ts.Date()
	switch {
	case m == time.January && (d == 1 || d == 6):
		return true
	case m == time.April && d == 25:
		return true
	case m == time.May && d == 1:
		return true
	case m == time.June && d == 2:
		return true
	case m == time.August && d == 15:
		return true
	case m == time.November && d == 1:
		return true
	case m == time.December && (d == 8 || d == 25 || d == 26):
		return true
	}
	em := easterMonday(y)
	return m == em.Month() && d == em.Day()
}

// easterMonday returns the day after Easter Sunday using the anonymous
// Gregorian algorithm.
func easterMonday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
