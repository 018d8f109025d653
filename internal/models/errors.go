package models

import "errors"

// Run-level failure kinds. Per-channel and per-record failures are
// absorbed into counters instead (see AnalysisRun summary).
var (
	ErrInputNotFound = errors.New("export root not found")
	ErrStoreWrite    = errors.New("store write failed")
	ErrStoreRead     = errors.New("store read failed")
)
