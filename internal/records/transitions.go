package records

import "fmt"

// allowedFrom lists the statuses a record may hold before moving to target.
var allowedFrom = map[Status][]Status{
	StatusProcessing: {StatusPending, StatusFailed},
	StatusCompleted:  {StatusProcessing},
	StatusFailed:     {StatusProcessing},
}

// ValidStatus reports whether s names a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether a record in from may move to to.
func CanTransition(from, to Status) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

func sourcesFor(target Status) ([]Status, error) {
	sources, ok := allowedFrom[target]
	if !ok {
		return nil, fmt.Errorf("%w: cannot move to %q", ErrInvalidTransition, target)
	}
	return sources, nil
}

func transitionError(id int64, current, target Status) error {
	return fmt.Errorf("%w: video %d is %s, cannot move to %s", ErrInvalidTransition, id, current, target)
}
