package couchbase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
)

// ErrLocked is returned when another process holds the ingest lock
var ErrLocked = errors.New("database is already locked")

const lockDocID = "_system/ingest_lock"

// DatabaseLocker guards patient ingestion so only one ingest runs at a time.
// The lock document expires on its own if the holder dies.
type DatabaseLocker struct {
	bucket *gocb.Bucket
	owner  string
	ttl    time.Duration
	locked bool
}

// NewDatabaseLocker creates a new database locker
func NewDatabaseLocker(bucket *gocb.Bucket, owner string, ttl time.Duration) *DatabaseLocker {
	return &DatabaseLocker{
		bucket: bucket,
		owner:  owner,
		ttl:    ttl,
	}
}

// Lock takes the ingest lock, failing with ErrLocked when it is already held
func (l *DatabaseLocker) Lock(ctx context.Context) error {
	if l.locked {
		return ErrLocked
	}

	now := time.Now().UTC()
	lockDoc := map[string]interface{}{
		"locked":    true,
		"lockedAt":  now,
		"lockedBy":  l.owner,
		"expiresAt": now.Add(l.ttl),
	}

	col := l.bucket.DefaultCollection()
	_, err := col.Insert(lockDocID, lockDoc, &gocb.InsertOptions{
		Context: ctx,
		Expiry:  l.ttl,
	})
	if errors.Is(err, gocb.ErrDocumentExists) {
		return ErrLocked
	}
	if err != nil {
		return fmt.Errorf("failed to create lock document: %w", err)
	}

	l.locked = true
	log.Info().Str("owner", l.owner).Msg("Database locked successfully")
	return nil
}

// Unlock releases the ingest lock
func (l *DatabaseLocker) Unlock(ctx context.Context) error {
	if !l.locked {
		return fmt.Errorf("database is not locked")
	}

	col := l.bucket.DefaultCollection()
	_, err := col.Remove(lockDocID, &gocb.RemoveOptions{Context: ctx})
	if err != nil && !errors.Is(err, gocb.ErrDocumentNotFound) {
		return fmt.Errorf("failed to remove lock document: %w", err)
	}

	l.locked = false
	log.Info().Str("owner", l.owner).Msg("Database unlocked successfully")
	return nil
}

// CheckLockStatus reports whether any process currently holds the lock
func (l *DatabaseLocker) CheckLockStatus(ctx context.Context) (bool, error) {
	col := l.bucket.DefaultCollection()

	res, err := col.Exists(lockDocID, &gocb.ExistsOptions{Context: ctx})
	if err != nil {
		return false, fmt.Errorf("failed to check lock status: %w", err)
	}
	return res.Exists(), nil
}
