package engine

import (
	"errors"
	"fmt"
)

// ErrZeroStopDistance is returned when position sizing is asked to divide
// by a zero entry-to-stop distance. Never defaulted silently.
var ErrZeroStopDistance = errors.New("entry and stop loss are equal: zero stop distance")

// ContractViolationError reports a post-aggregation invariant failure.
// This is a defect to surface, not a runtime condition to mask.
type ContractViolationError struct {
	Invariant string
	Detail    string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("contract violation: %s (%s)", e.Invariant, e.Detail)
}

// IsContractViolation reports whether err is a ContractViolationError.
func IsContractViolation(err error) bool {
	var cv *ContractViolationError
	return errors.As(err, &cv)
}
