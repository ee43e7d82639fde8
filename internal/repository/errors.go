package repository

import "errors"

// ErrConditionFailed is returned when a conditional write matched no row:
// the row exists but was no longer in the state the write required.
var ErrConditionFailed = errors.New("repository: conditional write matched no rows")
