// Package lifecycle is the service record state machine. Every status change a
// service record goes through is looked up in a fixed transition table; pairs
// missing from the table are rejected.
package lifecycle

import (
	"errors"
	"fmt"
)

// Status of a service record.
type Status string

const (
	// New service or edit of an existing service pending staff approval.
	StatusDraft Status = "draft"
	// Approved and not superseded. Only current services are public.
	StatusCurrent Status = "current"
	// Staff rejected the submission or edit.
	StatusRejected Status = "rejected"
	// Provider withdrew a draft or a current service.
	StatusCanceled Status = "canceled"
	// Obsolete record, kept for history.
	StatusArchived Status = "archived"
)

// Event drives a transition.
type Event string

const (
	EventApprove   Event = "approve"
	EventReject    Event = "reject"
	EventCancel    Event = "cancel"
	EventSupersede Event = "supersede"
)

var ErrInvalidTransition = errors.New("invalid status transition")

type key struct {
	from  Status
	event Event
}

var table = map[key]Status{
	{StatusDraft, EventApprove}:     StatusCurrent,
	{StatusDraft, EventReject}:      StatusRejected,
	{StatusDraft, EventCancel}:      StatusCanceled,
	{StatusDraft, EventSupersede}:   StatusArchived,
	{StatusCurrent, EventCancel}:    StatusCanceled,
	{StatusCurrent, EventSupersede}: StatusArchived,
}

// Next returns the status reached by applying event in status from.
func Next(from Status, event Event) (Status, error) {
	to, ok := table[key{from, event}]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s record", ErrInvalidTransition, event, from)
	}
	return to, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusCurrent, StatusRejected, StatusCanceled, StatusArchived:
		return true
	default:
		return false
	}
}

// Terminal reports whether no event can move a record out of s.
func (s Status) Terminal() bool {
	for k := range table {
		if k.from == s {
			return false
		}
	}
	return true
}

// Live reports whether a record in s still counts against the lineage
// invariant of one current plus one pending record.
func (s Status) Live() bool {
	return s == StatusDraft || s == StatusCurrent
}
