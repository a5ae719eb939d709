package shifts

import "fmt"

type Error string

const (
	ErrVeterinarianNotFound = "veterinarian not found"
	ErrBlockNotFound        = "availability block not found"
	ErrInvalidIdentifier    = "invalid identifier"
)

func (e Error) Error() string {
	return string(e)
}

// InvalidIntervalError is returned when a block doesn't start before it ends.
type InvalidIntervalError struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("start time %s must be before end time %s", e.Start, e.End)
}

// OverlapError is returned when a block intersects an existing block of the same veterinarian
// and weekday. Start and End are the bounds of the existing block, when known.
type OverlapError struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (e *OverlapError) Error() string {
	if e.Start == 0 && e.End == 0 {
		return "overlaps an existing block"
	}
	return fmt.Sprintf("overlaps an existing block (%s - %s)", e.Start, e.End)
}
