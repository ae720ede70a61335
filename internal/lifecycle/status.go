// Package lifecycle holds the pickup state machine, the courier track
// ordering and the point settlement arithmetic. It has no storage
// dependencies; services apply its decisions to the database.
package lifecycle

import (
	"errors"
	"fmt"
)

// Status is the coarse state of a pickup (penyetoran).
type Status string

const (
	StatusPending    Status = "Pending"
	StatusDijemput   Status = "Dijemput"
	StatusDitimbang  Status = "Ditimbang"
	StatusSelesai    Status = "Selesai"
	StatusDibatalkan Status = "Dibatalkan"
)

// ErrInvalidTransition is wrapped by every rejected status change.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrUnknownStatus is returned for values outside the pickup pipeline.
var ErrUnknownStatus = errors.New("unknown status")

// forward is the single successor on the courier path.
var forward = map[Status]Status{
	StatusPending:   StatusDijemput,
	StatusDijemput:  StatusDitimbang,
	StatusDitimbang: StatusSelesai,
}

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusDijemput: true, StatusDibatalkan: true},
	StatusDijemput:   {StatusDitimbang: true},
	StatusDitimbang:  {StatusSelesai: true},
	StatusSelesai:    {},
	StatusDibatalkan: {},
}

// Valid reports whether s is one of the known pickup statuses.
func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s.Valid() && len(validNext[s]) == 0
}

// Next returns the courier-path successor of s, if any.
func Next(s Status) (Status, bool) {
	n, ok := forward[s]
	return n, ok
}

// CanTransition validates a requested change from -> to.
func CanTransition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if validNext[from][to] {
		return nil
	}
	if n, ok := forward[from]; ok {
		return fmt.Errorf("%w: %s -> %s (expected %s)", ErrInvalidTransition, from, to, n)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// CreatesTrack reports whether entering to from from opens the track log.
func CreatesTrack(from, to Status) bool {
	return from == StatusPending && to == StatusDijemput
}
