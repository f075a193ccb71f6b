// Package shot implements MST shot-number arithmetic and server routing.
//
// A shot number is a 10-digit integer encoding the run date and a sequence
// number within that date: (year-1900)*10^7 + month*10^5 + day*10^3 + seq.
// For example, shot 1140101001 is the first shot taken on Jan 1, 2014.
// All functions here are pure; routing consults a clock but holds no state
// beyond its configuration.
package shot

import (
	"fmt"
	"time"
)

const (
	// MinValid is the lowest representable shot number (Jan 1, 2000, seq 1).
	MinValid = 1000101001

	// MaxValid is the highest representable shot number (Dec 12, 2899, seq 999).
	MaxValid = 9991212999

	// maxSeq is the highest sequence number within one day.
	maxSeq = 999
)

// MinShotForDate returns the first shot number of the given date.
func MinShotForDate(d time.Time) int64 {
	y, m, day := d.Date()
	return int64(y%1000+100)*10000000 + int64(m)*100000 + int64(day)*1000 + 1
}

// MaxShotForDate returns the last shot number of the given date.
func MaxShotForDate(d time.Time) int64 {
	return MinShotForDate(d) + maxSeq - 1
}

// ToDate returns the calendar date encoded in the shot number.
// It fails if the encoded month/day is not a real calendar date.
func ToDate(shotNum int64) (time.Time, error) {
	day := int(shotNum/1000) % 100
	month := int(shotNum/100000) % 100
	year := int(shotNum/10000000) + 1900

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, fmt.Errorf("shot %d encodes invalid date %04d-%02d-%02d", shotNum, year, month, day)
	}
	return d, nil
}

// Seq returns the sequence-within-day component of the shot number.
func Seq(shotNum int64) int {
	return int(shotNum % 1000)
}

// DateNum returns the canonical date number for the shot, e.g. shot
// 1100502001 yields 20100502.
func DateNum(shotNum int64) (int, error) {
	d, err := ToDate(shotNum)
	if err != nil {
		return 0, err
	}
	return DateToDateNum(d), nil
}

// DateToDateNum returns the canonical date number for a date, e.g.
// Jan 12, 2011 yields 20110112.
func DateToDateNum(d time.Time) int {
	y, m, day := d.Date()
	return y*10000 + int(m)*100 + day
}

// Valid reports whether shotNum is a well-formed shot number: within the
// representable range, a nonzero sequence number, and a real calendar date.
func Valid(shotNum int64) bool {
	if shotNum < MinValid || shotNum > MaxValid || shotNum%1000 == 0 {
		return false
	}
	_, err := ToDate(shotNum)
	return err == nil
}
