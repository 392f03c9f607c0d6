package shipper

import (
	"slices"
	"time"
)

// SortEvents converts event times to UTC and orders them ascending. Events
// sharing a timestamp keep the order the carrier reported them in.
func SortEvents(events []ShipmentEvent) []ShipmentEvent {
	sorted := make([]ShipmentEvent, len(events))
	for i, ev := range events {
		ev.Time = ev.Time.UTC()
		sorted[i] = ev
	}
	slices.SortStableFunc(sorted, func(a, b ShipmentEvent) int {
		return a.Time.Compare(b.Time)
	})
	return sorted
}

// ZonelessUTC reinterprets the wall clock of t as UTC, dropping its zone.
func ZonelessUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
