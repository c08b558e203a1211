package booking_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"train_booking/internal/booking"
	"train_booking/internal/dbtest"
	"train_booking/internal/domain"
)

func newEngine(db *gorm.DB) *booking.Engine {
	return booking.NewEngine(db, booking.Options{
		MaxAttempts: 3,
		TxTimeout:   5 * time.Second,
		RetryDelay:  time.Millisecond,
	})
}

// assertLedgerConsistent checks available == capacity - sum(booked).
func assertLedgerConsistent(t *testing.T, db *gorm.DB, train domain.Train) {
	t.Helper()
	assert.Equal(t, train.Capacity-dbtest.SeatsBooked(t, db, train.ID), dbtest.AvailableSeats(t, db, train.ID))
}

func TestReserveDecrementsAndRejectsOverbooking(t *testing.T) {
	db := dbtest.Open(t)
	user1 := dbtest.SeedUser(t, db, "one@example.com")
	user2 := dbtest.SeedUser(t, db, "two@example.com")
	train := dbtest.SeedTrain(t, db, "Pune", "Mumbai", 10)
	engine := newEngine(db)
	ctx := context.Background()

	b, err := engine.Reserve(ctx, user1.ID, train.ID, 4)
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, user1.ID, b.UserID)
	assert.Equal(t, train.ID, b.TrainID)
	assert.Equal(t, 4, b.SeatsBooked)
	assert.Equal(t, 6, dbtest.AvailableSeats(t, db, train.ID))

	_, err = engine.Reserve(ctx, user2.ID, train.ID, 7)
	assert.ErrorIs(t, err, booking.ErrInsufficientCapacity)
	assert.Equal(t, 6, dbtest.AvailableSeats(t, db, train.ID))
	assert.EqualValues(t, 1, dbtest.BookingCount(t, db, train.ID))
	assertLedgerConsistent(t, db, train)
}

func TestReserveExactFitThenEmpty(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.SeedUser(t, db, "fit@example.com")
	train := dbtest.SeedTrain(t, db, "A", "B", 5)
	engine := newEngine(db)

	_, err := engine.Reserve(context.Background(), user.ID, train.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, dbtest.AvailableSeats(t, db, train.ID))

	_, err = engine.Reserve(context.Background(), user.ID, train.ID, 1)
	assert.ErrorIs(t, err, booking.ErrInsufficientCapacity)
	assert.Equal(t, 0, dbtest.AvailableSeats(t, db, train.ID))
}

func TestReserveUnknownTrain(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.SeedUser(t, db, "ghost@example.com")
	engine := newEngine(db)

	_, err := engine.Reserve(context.Background(), user.ID, 9999, 1)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&domain.Booking{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestReserveRejectsNonPositiveSeats(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.SeedUser(t, db, "zero@example.com")
	train := dbtest.SeedTrain(t, db, "A", "B", 3)
	engine := newEngine(db)

	for _, seats := range []int{0, -1, -10} {
		_, err := engine.Reserve(context.Background(), user.ID, train.ID, seats)
		assert.ErrorIs(t, err, booking.ErrInvalidArgument, "seats=%d", seats)
	}
	assert.Equal(t, 3, dbtest.AvailableSeats(t, db, train.ID))
	assert.Zero(t, dbtest.BookingCount(t, db, train.ID))
}

func TestReserveFailedInsertLeavesCounterUntouched(t *testing.T) {
	db := dbtest.Open(t)
	train := dbtest.SeedTrain(t, db, "A", "B", 8)
	engine := newEngine(db)

	// No such user: the booking insert violates its foreign key after the
	// decrement has already run inside the unit of work.
	_, err := engine.Reserve(context.Background(), 4242, train.ID, 3)
	assert.ErrorIs(t, err, booking.ErrInternal)
	assert.Equal(t, 8, dbtest.AvailableSeats(t, db, train.ID))
	assert.Zero(t, dbtest.BookingCount(t, db, train.ID))
}

func TestReserveTwoConcurrentRequestsForMostSeats(t *testing.T) {
	db := dbtest.Open(t)
	user1 := dbtest.SeedUser(t, db, "a@example.com")
	user2 := dbtest.SeedUser(t, db, "b@example.com")
	train := dbtest.SeedTrain(t, db, "A", "B", 10)
	engine := newEngine(db)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, u := range []domain.User{user1, user2} {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			_, errs[i] = engine.Reserve(context.Background(), userID, train.ID, 6)
		}(i, u.ID)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, booking.ErrInsufficientCapacity):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 4, dbtest.AvailableSeats(t, db, train.ID))
	assertLedgerConsistent(t, db, train)
}

func TestReserveManyConcurrentRequestsNeverOversell(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.SeedUser(t, db, "crowd@example.com")
	train := dbtest.SeedTrain(t, db, "A", "B", 15)
	engine := newEngine(db)

	const requests = 25
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Reserve(context.Background(), user.ID, train.ID, 1)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, booking.ErrInsufficientCapacity):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 15, succeeded.Load())
	assert.EqualValues(t, requests-15, rejected.Load())
	assert.Equal(t, 0, dbtest.AvailableSeats(t, db, train.ID))
	assertLedgerConsistent(t, db, train)
}

func TestReserveMixedSizesKeepLedgerConsistent(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.SeedUser(t, db, "mixed@example.com")
	train := dbtest.SeedTrain(t, db, "A", "B", 20)
	engine := newEngine(db)

	sizes := []int{3, 5, 2, 7, 4, 6, 1, 8, 2, 3}
	var wg sync.WaitGroup
	for _, n := range sizes {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := engine.Reserve(context.Background(), user.ID, train.ID, n)
			if err != nil {
				assert.ErrorIs(t, err, booking.ErrInsufficientCapacity)
			}
		}(n)
	}
	wg.Wait()

	booked := dbtest.SeatsBooked(t, db, train.ID)
	assert.LessOrEqual(t, booked, 20)
	// Every request is at most 8 seats, so a rejection means fewer than 8 remained.
	assert.Less(t, dbtest.AvailableSeats(t, db, train.ID), 8)
	assertLedgerConsistent(t, db, train)
}

func TestReserveCanceledBeforeStart(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.SeedUser(t, db, "gone@example.com")
	train := dbtest.SeedTrain(t, db, "A", "B", 4)
	engine := newEngine(db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Reserve(ctx, user.ID, train.ID, 2)
	assert.ErrorIs(t, err, booking.ErrInternal)
	assert.Equal(t, 4, dbtest.AvailableSeats(t, db, train.ID))
	assert.Zero(t, dbtest.BookingCount(t, db, train.ID))
}

func TestReserveCanceledInsideUnitOfWork(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.SeedUser(t, db, "hangup@example.com")
	train := dbtest.SeedTrain(t, db, "A", "B", 4)
	engine := newEngine(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The client disconnects after the decrement, just before the insert.
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:hangup", func(d *gorm.DB) {
		if _, ok := d.Statement.Model.(*domain.Booking); ok {
			cancel()
		}
	}))

	_, err := engine.Reserve(ctx, user.ID, train.ID, 2)
	assert.ErrorIs(t, err, booking.ErrInternal)
	assert.Equal(t, 4, dbtest.AvailableSeats(t, db, train.ID))
	assert.Zero(t, dbtest.BookingCount(t, db, train.ID))
}

// injectLockConflicts makes the next n locking reads of the trains table fail
// with a MySQL deadlock and counts every read of that table.
func injectLockConflicts(t *testing.T, db *gorm.DB, n int32) *atomic.Int32 {
	t.Helper()

	var remaining atomic.Int32
	remaining.Store(n)
	reads := &atomic.Int32{}
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:deadlock", func(d *gorm.DB) {
		if d.Statement.Table != "trains" {
			return
		}
		reads.Add(1)
		if remaining.Add(-1) >= 0 {
			_ = d.AddError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
		}
	}))
	return reads
}

func TestReserveRetriesLockConflicts(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.SeedUser(t, db, "retry@example.com")
	train := dbtest.SeedTrain(t, db, "A", "B", 5)
	engine := newEngine(db)
	reads := injectLockConflicts(t, db, 1)

	b, err := engine.Reserve(context.Background(), user.ID, train.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, b.SeatsBooked)
	assert.EqualValues(t, 2, reads.Load())
	assert.EqualValues(t, 1, dbtest.BookingCount(t, db, train.ID))
	assert.Equal(t, 3, dbtest.AvailableSeats(t, db, train.ID))
}

func TestReserveGivesUpAfterMaxAttempts(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.SeedUser(t, db, "stuck@example.com")
	train := dbtest.SeedTrain(t, db, "A", "B", 5)
	engine := newEngine(db)
	reads := injectLockConflicts(t, db, 100)

	_, err := engine.Reserve(context.Background(), user.ID, train.ID, 2)
	assert.ErrorIs(t, err, booking.ErrInternal)
	assert.EqualValues(t, 3, reads.Load())
}

func TestReserveDoesNotRetryInsufficientCapacity(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.SeedUser(t, db, "once@example.com")
	train := dbtest.SeedTrain(t, db, "A", "B", 1)
	engine := newEngine(db)
	reads := injectLockConflicts(t, db, 0)

	_, err := engine.Reserve(context.Background(), user.ID, train.ID, 2)
	assert.ErrorIs(t, err, booking.ErrInsufficientCapacity)
	assert.EqualValues(t, 1, reads.Load())
}

// recordTrainAccess logs, in order, every read and write of the trains table
// made inside a transaction, marking reads that carry an exclusive row lock.
func recordTrainAccess(t *testing.T, db *gorm.DB) *[]string {
	t.Helper()

	var (
		mu  sync.Mutex
		log []string
	)
	note := func(d *gorm.DB, what string) {
		if d.Statement.Table != "trains" {
			return
		}
		if _, inTx := d.Statement.ConnPool.(*sql.Tx); !inTx {
			return
		}
		mu.Lock()
		log = append(log, what)
		mu.Unlock()
	}
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:reads", func(d *gorm.DB) {
		if c, ok := d.Statement.Clauses["FOR"]; ok {
			if l, ok := c.Expression.(clause.Locking); ok && l.Strength == clause.LockingStrengthUpdate {
				note(d, "read for update")
				return
			}
		}
		note(d, "read")
	}))
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:writes", func(d *gorm.DB) {
		note(d, "decrement")
	}))
	return &log
}

func TestReserveLocksTrainRowBeforeDecrement(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.SeedUser(t, db, "lock@example.com")
	train := dbtest.SeedTrain(t, db, "A", "B", 5)
	engine := newEngine(db)
	access := recordTrainAccess(t, db)

	_, err := engine.Reserve(context.Background(), user.ID, train.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"read for update", "decrement"}, *access)
}

func TestReserveRejectsFromLockedReadNotGuard(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.SeedUser(t, db, "guard@example.com")
	train := dbtest.SeedTrain(t, db, "A", "B", 5)
	engine := newEngine(db)
	access := recordTrainAccess(t, db)

	_, err := engine.Reserve(context.Background(), user.ID, train.ID, 6)
	assert.ErrorIs(t, err, booking.ErrInsufficientCapacity)
	// The capacity check under the lock decides; no guarded update is attempted.
	assert.Equal(t, []string{"read for update"}, *access)
}
