package mask

import "fmt"

// MaskingError reports a failure to produce a mapping for one entity. Per
// the all-or-nothing policy, any MaskingError aborts the whole masking
// operation: partially masked output is never emitted.
type MaskingError struct {
	Role   Role
	Entity string
	Reason string
}

func (e *MaskingError) Error() string {
	return fmt.Sprintf("masking failed for %s %q: %s", e.Role, e.Entity, e.Reason)
}

// Reasons for MaskingError.
const (
	ReasonNameSpaceExhausted = "synthetic name space exhausted"
)
