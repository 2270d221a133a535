package transaction

import "fmt"

// Status is the lifecycle state of a credential request.
type Status string

const (
	StatusSubmitted Status = "Submitted"
	StatusScheduled Status = "Scheduled"
	StatusReady     Status = "Ready"
	StatusClaimed   Status = "Claimed"
	StatusRejected  Status = "Rejected"
)

var Statuses = []Status{StatusSubmitted, StatusScheduled, StatusReady, StatusClaimed, StatusRejected}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusSubmitted, StatusScheduled, StatusReady, StatusClaimed, StatusRejected:
		return st, nil
	}

	return "", fmt.Errorf("unknown status %q", s)
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusSubmitted:
		return next == StatusScheduled || next == StatusRejected
	case StatusScheduled:
		return next == StatusReady || next == StatusClaimed || next == StatusRejected
	case StatusReady:
		return next == StatusClaimed
	case StatusClaimed, StatusRejected:
		return false
	}

	return false
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusClaimed, StatusRejected:
		return true
	case StatusSubmitted, StatusScheduled, StatusReady:
		return false
	}

	return false
}
