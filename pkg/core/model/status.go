package model

type Status string

const (
	StatusAssigned  Status = "assigned"
	StatusCheckedIn Status = "checked-in"
	StatusNoShow    Status = "no-show"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusAssigned, StatusCheckedIn, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether a booking in this status occupies its slot
func (s Status) IsActive() bool {
	return s == StatusAssigned || s == StatusCheckedIn
}

// TransitionTable lists, for each status, the statuses it may move to
type TransitionTable map[Status][]Status

// Allows reports whether from -> to is permitted by the table
func (t TransitionTable) Allows(from, to Status) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TerminalTransitions treats checked-in, no-show and cancelled as final.
// Corrections go through an administrative remove.
var TerminalTransitions = TransitionTable{
	StatusAssigned: {StatusCheckedIn, StatusNoShow, StatusCancelled},
}

// RevisableTransitions lets attendance be re-recorded any number of times and
// lets an administrator cancel after attendance was recorded. Cancelled stays
// final in both tables.
var RevisableTransitions = TransitionTable{
	StatusAssigned:  {StatusCheckedIn, StatusNoShow, StatusCancelled},
	StatusCheckedIn: {StatusCheckedIn, StatusNoShow, StatusCancelled},
	StatusNoShow:    {StatusCheckedIn, StatusNoShow, StatusCancelled},
}
