package model

import (
	"regexp"
	"strings"
)

// DeliveredMarker is the literal substring the carrier puts in an event's
// details once the parcel reached the consignee. Matching is case-sensitive.
const DeliveredMarker = "Delivered"

// Event is one scan observation for a waybill, exactly as shown on the
// carrier's tracking page. Events are plain value types; two events are the
// same observation iff all four fields match.
type Event struct {
	Location string `json:"location"`
	Details  string `json:"details"` // human-readable status phrase
	Date     string `json:"date"`
	Time     string `json:"time"`
}

// Delivered reports whether the event marks the terminal delivery status.
func (e Event) Delivered() bool {
	return strings.Contains(e.Details, DeliveredMarker)
}

var waybillRe = regexp.MustCompile(`^[0-9]{11}$`)

// ValidWaybill reports whether s is a well-formed waybill number:
// exactly 11 consecutive digits.
func ValidWaybill(s string) bool {
	return waybillRe.MatchString(s)
}
