// Package lock provides MySQL advisory locking to serialize sync runs.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrLockTimeout is returned when lock acquisition times out because
// another run is holding the lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Lock acquisition timeouts (in seconds).
const (
	// TimeoutImmediate returns immediately if the lock cannot be acquired.
	TimeoutImmediate = 0

	// TimeoutShort is suitable for fast-failing duplicate run detection.
	TimeoutShort = 1
)

// RunLock prevents concurrent sync runs against the same warehouse target.
// The checkpoint load-then-save sequence is not safe under concurrent runs,
// so every run must hold this lock for its full duration. It uses MySQL's
// GET_LOCK() function, which scopes the lock to a single session, so the
// lock pins one connection out of the pool for as long as it is held;
// the lock is released explicitly or when that connection closes.
type RunLock struct {
	db       *sql.DB
	conn     *sql.Conn
	lockName string
	held     bool
}

// NewRunLock creates an advisory lock scoped to the given sync target
// (typically the warehouse database name). The lock is not acquired until
// Acquire is called.
func NewRunLock(db *sql.DB, target string) *RunLock {
	return &RunLock{
		db:       db,
		lockName: "metasync:" + target,
	}
}

// Acquire attempts to acquire the advisory lock with the specified timeout.
// Returns true if the lock was acquired, false on timeout.
//
// MySQL GET_LOCK() return values:
//   - 1: Lock was obtained successfully
//   - 0: Timeout was reached without obtaining the lock
//   - NULL: An error occurred (e.g., out of memory, thread killed)
func (l *RunLock) Acquire(ctx context.Context, timeoutSeconds int) (bool, error) {
	if l.held {
		return true, nil // Already holding the lock
	}

	// GET_LOCK and RELEASE_LOCK must run on the same session, so take a
	// dedicated connection out of the pool instead of going through db.
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to obtain connection for lock: %w", err)
	}

	var result sql.NullInt64
	err = conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", l.lockName, timeoutSeconds).Scan(&result)
	if err != nil {
		conn.Close()
		return false, fmt.Errorf("failed to execute GET_LOCK: %w", err)
	}

	if !result.Valid {
		conn.Close()
		return false, fmt.Errorf("GET_LOCK returned NULL for lock %q (possible database error)", l.lockName)
	}

	switch result.Int64 {
	case 1:
		l.conn = conn
		l.held = true
		return true, nil
	case 0:
		conn.Close()
		return false, nil
	default:
		conn.Close()
		return false, fmt.Errorf("unexpected GET_LOCK return value: %d", result.Int64)
	}
}

// AcquireOrFail acquires the lock with a short timeout and returns
// ErrLockTimeout if another run is already in progress.
func (l *RunLock) AcquireOrFail(ctx context.Context) error {
	acquired, err := l.Acquire(ctx, TimeoutShort)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrLockTimeout
	}
	return nil
}

// Release releases the advisory lock.
// Returns true if the lock was released, false if it was not held.
//
// MySQL RELEASE_LOCK() return values:
//   - 1: Lock was released successfully
//   - 0: Lock was not established by this thread
//   - NULL: Named lock did not exist
func (l *RunLock) Release(ctx context.Context) (bool, error) {
	if !l.held || l.conn == nil {
		return false, nil
	}

	var result sql.NullInt64
	err := l.conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", l.lockName).Scan(&result)

	// Return the pinned connection to the pool regardless of the outcome;
	// a dropped connection releases the lock server-side anyway.
	l.conn.Close()
	l.conn = nil
	l.held = false

	if err != nil {
		return false, fmt.Errorf("failed to execute RELEASE_LOCK: %w", err)
	}

	if !result.Valid {
		return false, fmt.Errorf("RELEASE_LOCK returned NULL for lock %q", l.lockName)
	}
	return result.Int64 == 1, nil
}

// IsHeld reports whether this instance currently holds the lock.
func (l *RunLock) IsHeld() bool {
	return l.held
}

// Name returns the fully qualified lock name.
func (l *RunLock) Name() string {
	return l.lockName
}
