package memory

import (
	"sync"
	"time"

	"banking-ledger/internal/errors"
)

// lockTable hands out one exclusive slot per account id. A lock entry is
// a buffered channel of size one: sending claims the lock, receiving
// releases it, and a claim that cannot proceed within the bound fails
// with lock_timeout.
type lockTable struct {
	mu    sync.Mutex
	locks map[int64]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{
		locks: make(map[int64]chan struct{}),
	}
}

func (t *lockTable) slot(id int64) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		t.locks[id] = ch
	}
	return ch
}

// acquire claims the exclusive lock for id, waiting at most timeout.
func (t *lockTable) acquire(id int64, timeout time.Duration) error {
	slot := t.slot(id)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
		return nil
	case <-timer.C:
		return errors.ErrLockTimeout
	}
}

// release frees the lock for id. The caller must hold it.
func (t *lockTable) release(id int64) {
	<-t.slot(id)
}
