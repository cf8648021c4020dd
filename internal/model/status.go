package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Status is the lifecycle state of an optimization task.
type Status int

const (
	StatusIdle Status = iota
	StatusQueued
	StatusRunning
	StatusFinished
	StatusStopped
	StatusTerminated
	StatusError
)

// AllStatuses lists every status in declaration order.
var AllStatuses = []Status{
	StatusIdle, StatusQueued, StatusRunning, StatusFinished,
	StatusStopped, StatusTerminated, StatusError,
}

var statusNames = map[Status]string{
	StatusIdle:       "IDLE",
	StatusQueued:     "QUEUED",
	StatusRunning:    "RUNNING",
	StatusFinished:   "FINISHED",
	StatusStopped:    "STOPPED",
	StatusTerminated: "TERMINATED",
	StatusError:      "ERROR",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus is the inverse of String, case-insensitive.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return StatusIdle, fmt.Errorf("unknown status %q", name)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// StatusTransitions is the allowed-target table. Self transitions are
// always allowed and are not listed.
var StatusTransitions = map[Status][]Status{
	StatusIdle:       {StatusQueued, StatusError},
	StatusQueued:     {StatusRunning, StatusStopped, StatusTerminated, StatusError},
	StatusRunning:    {StatusFinished, StatusStopped, StatusTerminated, StatusError},
	StatusFinished:   {StatusError},
	StatusError:      {StatusIdle, StatusQueued},
	StatusStopped:    {},
	StatusTerminated: {},
}

// ErrInvalidTransition is returned for any transition not in the table.
var ErrInvalidTransition = errors.New("invalid status transition")

// CanTransitionTo reports whether s -> to is allowed.
func (s Status) CanTransitionTo(to Status) bool {
	if s == to {
		return true
	}
	for _, allowed := range StatusTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionTo returns to when the transition is allowed, otherwise an
// ErrInvalidTransition naming both states.
func (s Status) TransitionTo(to Status) (Status, error) {
	if !s.CanTransitionTo(to) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return to, nil
}

// IsActive is true while the task is queued or running.
func (s Status) IsActive() bool {
	return s == StatusQueued || s == StatusRunning
}

// IsCompleted is true once the task reached an end state.
func (s Status) IsCompleted() bool {
	switch s {
	case StatusFinished, StatusStopped, StatusTerminated, StatusError:
		return true
	}
	return false
}

func (s Status) IsSuccessful() bool { return s == StatusFinished }
func (s Status) IsFailed() bool     { return s == StatusError }

// IsTerminal is true for states with no outgoing transitions.
func (s Status) IsTerminal() bool {
	return len(StatusTransitions[s]) == 0
}

var statusDisplayRank = map[Status]int{
	StatusError:      0,
	StatusRunning:    1,
	StatusQueued:     2,
	StatusStopped:    3,
	StatusTerminated: 4,
	StatusFinished:   5,
	StatusIdle:       6,
}

// DisplayRank orders statuses for listings: errors first, idle last.
func (s Status) DisplayRank() int {
	return statusDisplayRank[s]
}

// SortStatuses sorts in display order.
func SortStatuses(statuses []Status) {
	sort.SliceStable(statuses, func(i, j int) bool {
		return statuses[i].DisplayRank() < statuses[j].DisplayRank()
	})
}
