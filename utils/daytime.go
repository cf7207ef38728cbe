package utils

import (
	"time"
)

const Day = 24 * time.Hour

const (
	SecsInMin  = 60
	SecsInDay  = 86400
	MinsInDay  = 1440
	DayNameFmt = "20060102"
)

// DayStart returns the unix second at 00:00:00 UTC of the day holding t.
func DayStart(t int64) int64 {
	if t < 0 {
		return t - ((t%SecsInDay)+SecsInDay)%SecsInDay
	}
	return t - t%SecsInDay
}

// DayEnd returns the last second of the UTC day holding t.
func DayEnd(t int64) int64 {
	return DayStart(t) + SecsInDay - 1
}

// MinuteOfDay returns 0..1439 for the UTC minute holding t.
func MinuteOfDay(t int64) int {
	return int((t - DayStart(t)) / SecsInMin)
}

// DayName formats the UTC day holding t as YYYYMMDD.
func DayName(t int64) string {
	return time.Unix(t, 0).UTC().Format(DayNameFmt)
}

// ParseDayName is the inverse of DayName, returning the day start.
func ParseDayName(name string) (int64, error) {
	d, err := time.ParseInLocation(DayNameFmt, name, time.UTC)
	if err != nil {
		return 0, err
	}
	return d.Unix(), nil
}

func Unix(t int64) time.Time {
	return time.Unix(t, 0).UTC()
}
