package ledger

import "errors"

// IsLedgerError returns true if err is or wraps an UnknownListError,
// DuplicateListError, or FoldError.
func IsLedgerError(err error) bool {
	var ue *UnknownListError
	var de *DuplicateListError
	var fe *FoldError
	return errors.As(err, &ue) || errors.As(err, &de) || errors.As(err, &fe)
}
