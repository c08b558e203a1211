package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"train_booking/internal/ledger"
)

// Outcomes a reservation or lookup can fail with. Callers compare with
// errors.Is; every error returned by this package matches exactly one.
var (
	// ErrInvalidArgument means the request itself is malformed.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound means the train or booking does not exist for the caller.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientCapacity is definitive: retrying the same request
	// cannot succeed until seats are returned.
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	// ErrInternal covers storage and transport failures. Nothing was
	// committed, so the caller may retry.
	ErrInternal = errors.New("internal error")
)

// MySQL server error numbers that abort only the current transaction.
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// classify folds ledger and storage errors into the package taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInsufficientCapacity),
		errors.Is(err, ErrInternal):
		return err
	case errors.Is(err, ledger.ErrTrainNotFound):
		return ErrNotFound
	case errors.Is(err, ledger.ErrInsufficientSeats):
		return ErrInsufficientCapacity
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}

// transient reports whether a failed unit of work is worth running again.
// Only lock conflicts qualify, and only while the caller is still waiting.
func transient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout
	}
	return false
}
