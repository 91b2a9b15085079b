package temporal

import (
	"errors"
	"fmt"
)

// ErrInvalidTemporalInput is matched by every InvalidInputError via errors.Is.
var ErrInvalidTemporalInput = errors.New("invalid temporal input")

// InvalidInputError reports a bad vintage, lifetime, or period calendar.
// It aborts the build of the scenario that supplied the data.
type InvalidInputError struct {
	Asset   string
	Period  string
	Message string
}

func (e *InvalidInputError) Error() string {
	switch {
	case e.Asset != "" && e.Period != "":
		return fmt.Sprintf("invalid temporal input for %s vintage %s: %s", e.Asset, e.Period, e.Message)
	case e.Period != "":
		return fmt.Sprintf("invalid temporal input for period %s: %s", e.Period, e.Message)
	default:
		return fmt.Sprintf("invalid temporal input: %s", e.Message)
	}
}

// Is reports whether target is ErrInvalidTemporalInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidTemporalInput
}

// IsInvalidInput returns true if err is or wraps an InvalidInputError.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidTemporalInput)
}
