package compose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/souissim/gridpath/internal/ledger"
	"github.com/souissim/gridpath/internal/scenario"
)

// CompositionError represents a module set that cannot be composed.
//
// Composition errors are fatal for the whole run and are detected before any
// scenario key is solved:
//   - Unknown or duplicate modules
//   - Missing dependencies and dependency cycles
//   - Declare referencing an entity no earlier module declared
//   - Two modules declaring the same entity or ledger list
type CompositionError struct {
	// Code identifies the error category.
	Code CompositionErrorCode

	// Module is the offending module.
	Module string

	// Entity is the entity or dependency the module referenced, if any.
	Entity string

	// Path is the dependency cycle, first module repeated at the end.
	Path []string

	// Err is the underlying error, if any.
	Err error
}

// CompositionErrorCode categorizes composition errors.
type CompositionErrorCode string

const (
	// ErrCodeUnknownModule indicates a requested module is not registered.
	ErrCodeUnknownModule CompositionErrorCode = "UNKNOWN_MODULE"

	// ErrCodeDuplicateModule indicates a module is registered or requested twice.
	ErrCodeDuplicateModule CompositionErrorCode = "DUPLICATE_MODULE"

	// ErrCodeMissingDependency indicates a dependency is not in the module set.
	ErrCodeMissingDependency CompositionErrorCode = "MISSING_DEPENDENCY"

	// ErrCodeCycle indicates modules depend on each other.
	ErrCodeCycle CompositionErrorCode = "DEPENDENCY_CYCLE"

	// ErrCodeMissingEntity indicates declare referenced an undeclared entity.
	ErrCodeMissingEntity CompositionErrorCode = "MISSING_ENTITY"

	// ErrCodeDuplicateEntity indicates two modules declared the same entity.
	ErrCodeDuplicateEntity CompositionErrorCode = "DUPLICATE_ENTITY"

	// ErrCodeLedger indicates a ledger list was misused.
	ErrCodeLedger CompositionErrorCode = "LEDGER"

	// ErrCodeNotIdempotent indicates a second declare changed the model.
	ErrCodeNotIdempotent CompositionErrorCode = "NOT_IDEMPOTENT"

	// ErrCodeDeclare indicates declare failed for another reason.
	ErrCodeDeclare CompositionErrorCode = "DECLARE_FAILED"
)

// Error implements the error interface.
func (e *CompositionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "composition: %s", e.Code)
	if e.Module != "" {
		fmt.Fprintf(&b, ": module %s", e.Module)
	}
	if e.Entity != "" {
		fmt.Fprintf(&b, " references %s", e.Entity)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Path, " → "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}

// IsCompositionError returns true if err is or wraps a CompositionError.
func IsCompositionError(err error) bool {
	var ce *CompositionError
	return errors.As(err, &ce)
}

// IsCycleError returns true if err is a dependency cycle.
func IsCycleError(err error) bool {
	var ce *CompositionError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeCycle
	}
	return false
}

// KeyError is the failure of one scenario key in one phase.
type KeyError struct {
	Key   scenario.Key
	Phase string
	Err   error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Key, e.Phase, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// fatal reports whether an error aborts the whole run rather than one key.
func fatal(err error) bool {
	return IsCompositionError(err) || ledger.IsLedgerError(err)
}
