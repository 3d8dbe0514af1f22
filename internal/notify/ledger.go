package notify

import (
	"errors"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Ledger is the durable set of already-announced keys. Entries are written
// once and never removed; presence alone means "announced". The write must
// land before the notification is attempted, so a crash between the two can
// only cost a notification, never duplicate one.
type Ledger interface {
	// MarkIfAbsent claims the key and reports whether this call was the
	// first to do so. Check and write share one transaction; handlers run
	// concurrently and must not race each other into a double send.
	MarkIfAbsent(key string) (bool, error)
}

func NewLedger(db *badger.DB) Ledger {
	return &LedgerImpl{db: db}
}

type LedgerImpl struct {
	mu sync.Mutex
	db *badger.DB
}

const announcedPrefix = "relay:announced:"

func (l *LedgerImpl) MarkIfAbsent(key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	claimed := false
	err := l.db.Update(func(txn *badger.Txn) error {
		fullKey := []byte(announcedPrefix + key)
		_, err := txn.Get(fullKey)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		claimed = true
		return txn.Set(fullKey, []byte{1})
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}
