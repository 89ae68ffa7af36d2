package appointment

import (
	"strings"
	"time"
)

// OnCallDoctorName is the doctor every on-call booking is made with.
const OnCallDoctorName = "Dr. Ong"

// AvailabilityPolicy decides whether a preferred doctor can be booked and,
// when not, which alternatives to offer.
type AvailabilityPolicy interface {
	Available(doctorName string) bool
	Alternatives(now time.Time) []AlternateOffer
}

// DemoAvailability treats Dr. Bob Seuss and Dr. Sam Smith as always
// available and offers both of them, with slots relative to now, otherwise.
type DemoAvailability struct{}

var availableDoctorSuffixes = []string{"bob seuss", "sam smith"}

func (DemoAvailability) Available(doctorName string) bool {
	name := strings.ToLower(doctorName)
	for _, suffix := range availableDoctorSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func (DemoAvailability) Alternatives(now time.Time) []AlternateOffer {
	return []AlternateOffer{
		{
			DoctorName: "Dr. Sam Smith",
			TimeSlots:  []time.Time{now, now.Add(5 * time.Hour), now.Add(15 * time.Hour)},
		},
		{
			DoctorName: "Dr. Bob Seuss",
			TimeSlots:  []time.Time{now.Add(10 * time.Hour), now.Add(7 * time.Hour), now.Add(15 * time.Hour)},
		},
	}
}

// localTimeLayouts are ISO 8601 date-times without an offset; they are read in
// the service's configured location.
var localTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimeSlot parses an unambiguous date-time: RFC 3339, or ISO 8601 local
// date and time interpreted in loc. Locale-dependent formats such as
// "10/01/2023 10:00 AM" are rejected.
func ParseTimeSlot(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
