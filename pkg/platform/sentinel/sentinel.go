package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and channel adapters return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: idempotency key or unique constraint already taken
//   - ErrUnavailable: store or channel temporarily unavailable
//   - ErrCircuitOpen: a downstream dependency is being short-circuited
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
	ErrCircuitOpen = errors.New("circuit open")
)
