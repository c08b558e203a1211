// Package dbtest opens throwaway SQLite databases carrying the production
// schema, for tests that need real gorm queries and transactions.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"train_booking/internal/db"
	"train_booking/internal/domain"
)

// Open returns a migrated database stored under t.TempDir. The pool is held to
// a single connection, so concurrent units of work queue for it the way they
// would queue for a row lock.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "booking.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}

// SeedUser inserts a user with a placeholder password hash.
func SeedUser(t testing.TB, gdb *gorm.DB, email string) domain.User {
	t.Helper()

	u := domain.User{Name: email, Email: email, Password: "x", Role: domain.RoleUser}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

// SeedTrain inserts a train whose available seats equal its capacity.
func SeedTrain(t testing.TB, gdb *gorm.DB, source, destination string, seats int) domain.Train {
	t.Helper()

	tr := domain.Train{
		Name:           source + "-" + destination,
		Source:         source,
		Destination:    destination,
		Capacity:       seats,
		AvailableSeats: seats,
	}
	require.NoError(t, gdb.Create(&tr).Error)
	return tr
}

// AvailableSeats reads a train's counter outside any unit of work.
func AvailableSeats(t testing.TB, gdb *gorm.DB, trainID uint) int {
	t.Helper()

	var tr domain.Train
	require.NoError(t, gdb.First(&tr, trainID).Error)
	return tr.AvailableSeats
}

// BookingCount counts committed bookings on a train.
func BookingCount(t testing.TB, gdb *gorm.DB, trainID uint) int64 {
	t.Helper()

	var n int64
	require.NoError(t, gdb.Model(&domain.Booking{}).Where("train_id = ?", trainID).Count(&n).Error)
	return n
}

// SeatsBooked sums seats over committed bookings on a train.
func SeatsBooked(t testing.TB, gdb *gorm.DB, trainID uint) int {
	t.Helper()

	var sum int
	require.NoError(t, gdb.Model(&domain.Booking{}).
		Where("train_id = ?", trainID).
		Select("COALESCE(SUM(seats_booked), 0)").
		Scan(&sum).Error)
	return sum
}
