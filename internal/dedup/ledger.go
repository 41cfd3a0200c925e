// Package dedup tracks voice messages that have already been fully
// processed, preventing reprocessing within (or, with the Redis ledger,
// beyond) a process lifetime.
package dedup

import "sync"

// Ledger records successfully processed message keys. Seen is consulted
// before a pipeline run begins; MarkProcessed is called only after the full
// run (download, transcribe, summarize, deliver) succeeded. Implementations
// must be safe under concurrent handlers.
type Ledger interface {
	Seen(key string) bool
	MarkProcessed(key string)
}

// MemoryLedger is the default process-lifetime ledger. It grows for the
// life of the process; practical size is bounded by the after-start recency
// filter applied at the listener level.
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		seen: make(map[string]struct{}),
	}
}

func (l *MemoryLedger) Seen(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[key]
	return ok
}

func (l *MemoryLedger) MarkProcessed(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[key] = struct{}{}
}

// Len reports the number of recorded keys.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
