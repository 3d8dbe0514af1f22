package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// badgerLogger routes the store's internal logging through the process
// logger. Debug output is dropped; badger is chatty at that level.
type badgerLogger struct {
	log *zap.SugaredLogger
}

func (b badgerLogger) Errorf(f string, v ...interface{})   { b.log.Errorf(f, v...) }
func (b badgerLogger) Warningf(f string, v ...interface{}) { b.log.Warnf(f, v...) }
func (b badgerLogger) Infof(f string, v ...interface{})    { b.log.Infof(f, v...) }
func (b badgerLogger) Debugf(string, ...interface{})       {}

// OpenBadger opens the ledger store. Writes are synced eagerly: an
// acknowledged ledger entry that is lost on crash would re-announce after
// restart. The workload is tiny presence markers, one version per key.
func OpenBadger(path string) (*badger.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{zap.S()})

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %w", err)
	}
	return bdb, nil
}
