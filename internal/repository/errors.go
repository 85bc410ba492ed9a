package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the
// repository. This abstracts away the underlying storage implementation
// from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateVoter is returned when a fingerprint has already been recorded
// for a poll. The in-memory ledger checks first; the unique constraint in
// storage is the backstop.
var ErrDuplicateVoter = errors.New("voter already recorded")
