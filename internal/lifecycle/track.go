package lifecycle

import (
	"errors"
	"fmt"
)

// TrackStatus is a fine-grained courier progress message.
type TrackStatus string

const (
	TrackWillPickUp TrackStatus = "Kurir akan menjemput"
	TrackOnTheWay   TrackStatus = "Kurir sedang dalam perjalanan"
	TrackArrived    TrackStatus = "Kurir tiba di lokasi"
)

var trackOrder = []TrackStatus{TrackWillPickUp, TrackOnTheWay, TrackArrived}

// ErrTrackRegression is wrapped when an append does not move forward.
var ErrTrackRegression = errors.New("track status must move forward")

// ErrUnknownTrackStatus is returned for messages outside the fixed sequence.
var ErrUnknownTrackStatus = errors.New("unknown track status")

// TrackIndex returns the position of s in the sequence, or -1.
func TrackIndex(s TrackStatus) int {
	for i, t := range trackOrder {
		if t == s {
			return i
		}
	}
	return -1
}

// TrackStatuses lists the sequence in order.
func TrackStatuses() []TrackStatus {
	out := make([]TrackStatus, len(trackOrder))
	copy(out, trackOrder)
	return out
}

// CanAppendTrack checks that next is strictly later than latest.
// An empty latest means the log has no entries yet.
func CanAppendTrack(latest, next TrackStatus) error {
	ni := TrackIndex(next)
	if ni < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownTrackStatus, next)
	}
	if latest == "" {
		return nil
	}
	li := TrackIndex(latest)
	if ni <= li {
		return fmt.Errorf("%w: %q after %q", ErrTrackRegression, next, latest)
	}
	return nil
}
