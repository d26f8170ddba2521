package contracts

import "errors"

// Error taxonomy shared by providers, analyzers and the ledger.
// Match with errors.Is; wrap with fmt.Errorf("...: %w", err).
var (
	// ErrDataUnavailable: fetch returned empty/absent. Callers skip the symbol.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrStaleData: reporting period too old. Warning only.
	ErrStaleData = errors.New("stale data")

	// ErrComputation: indicator math could not run (e.g. too few bars)
	ErrComputation = errors.New("computation error")

	// Ledger preconditions. The operation aborts with no mutation.
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNoPosition         = errors.New("no position")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrInvalidAmount      = errors.New("invalid amount")
)
