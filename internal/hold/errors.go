package hold

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidHoldParameters is returned when a hold request is missing its
	// slot, owner or tables.  Nothing is written.
	ErrInvalidHoldParameters = errors.New("invalid hold parameters")
	// ErrConflict matches any *ConflictError.
	ErrConflict = errors.New("tables already held")
)

// ConflictError reports which of the requested tables are held by someone
// else.  Callers should refresh availability and let the guest pick again.
type ConflictError struct {
	TableIDs []string
}

func (e *ConflictError) Error() string {
	if len(e.TableIDs) == 0 {
		return ErrConflict.Error()
	}
	return ErrConflict.Error() + ": " + strings.Join(e.TableIDs, ",")
}

// Is lets errors.Is(err, ErrConflict) match.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
