// Package repository defines sentinel errors shared across the data access
// layer.  Services compare against these with errors.Is to distinguish
// business outcomes from infrastructure failures: a missing allocation row
// means "unrestricted", a missing mapping triggers the fallback chain, and
// a checkpoint regression or version conflict means a concurrent writer won.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.  Repositories
// return it instead of sql.ErrNoRows so that callers do not depend on
// database/sql directly.
var ErrNotFound = errors.New("not found")

// ErrNoRoomTypes is returned when a hotel has no room types (or rate
// plans) configured at all.  This is the only hard stop in identifier
// resolution: without at least one room type there is nothing to default
// to.
var ErrNoRoomTypes = errors.New("no room types configured for hotel")

// ErrCheckpointRegression is returned when an advance would move a sync
// watermark backwards.  Checkpoints are monotonic; only an explicit
// operator reset may rewind them.
var ErrCheckpointRegression = errors.New("checkpoint would regress")

// ErrVersionConflict is returned when a conditional inventory update loses
// the compare-and-swap because another writer bumped the row version
// first.  Callers should re-read and retry or surrender the write.
var ErrVersionConflict = errors.New("version conflict")
