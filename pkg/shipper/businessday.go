package shipper

import "time"

// IsBusinessDay reports whether t falls on Monday through Friday.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// BusinessDaysFrom walks forward from t one calendar day at a time and
// returns the date on which the given number of business days have elapsed.
func BusinessDaysFrom(t time.Time, days int) time.Time {
	d := t
	for count := 0; count < days; {
		d = d.AddDate(0, 0, 1)
		if IsBusinessDay(d) {
			count++
		}
	}
	return d
}

// EstimateDelivery returns the delivery window for a shipment leaving at ship
// with a transit time between minDays and maxDays business days.
func EstimateDelivery(ship time.Time, minDays, maxDays int) DateRange {
	if maxDays < minDays {
		maxDays = minDays
	}
	return DateRange{
		Earliest: BusinessDaysFrom(ship, minDays),
		Latest:   BusinessDaysFrom(ship, maxDays),
	}
}
