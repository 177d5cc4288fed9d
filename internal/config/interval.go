package config

import "time"

// Interval is one of the selectable refresh periods.
type Interval int

const (
	IntervalOneMinute Interval = iota
	IntervalFiveMinutes
	IntervalTenMinutes
	IntervalThirtyMinutes
	IntervalOneHour
)

type intervalInfo struct {
	seconds int64
	zh, en  string
}

var intervalTable = map[Interval]intervalInfo{
	IntervalOneMinute:     {60, "1分钟", "1 minute"},
	IntervalFiveMinutes:   {300, "5分钟", "5 minutes"},
	IntervalTenMinutes:    {600, "10分钟", "10 minutes"},
	IntervalThirtyMinutes: {1800, "30分钟", "30 minutes"},
	IntervalOneHour:       {3600, "1小时", "1 hour"},
}

// Intervals lists every choice, shortest first.
func Intervals() []Interval {
	return []Interval{
		IntervalOneMinute,
		IntervalFiveMinutes,
		IntervalTenMinutes,
		IntervalThirtyMinutes,
		IntervalOneHour,
	}
}

// IntervalFromSeconds maps a persisted value back to an Interval. Values
// outside the table give five minutes.
func IntervalFromSeconds(secs int64) Interval {
	if i, ok := LookupInterval(secs); ok {
		return i
	}
	return IntervalFiveMinutes
}

// LookupInterval reports the Interval lasting exactly secs seconds, if any.
func LookupInterval(secs int64) (Interval, bool) {
	for i, info := range intervalTable {
		if info.seconds == secs {
			return i, true
		}
	}
	return 0, false
}

func (i Interval) info() intervalInfo {
	if info, ok := intervalTable[i]; ok {
		return info
	}
	return intervalTable[IntervalFiveMinutes]
}

func (i Interval) Seconds() int64 {
	return i.info().seconds
}

func (i Interval) Duration() time.Duration {
	return time.Duration(i.Seconds()) * time.Second
}

// Label is the display text for i in lang.
func (i Interval) Label(lang Language) string {
	if lang == LanguageEnglish {
		return i.info().en
	}
	return i.info().zh
}
