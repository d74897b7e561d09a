package table

import (
	"sync"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// Snapshot is published to subscribers after the row collection is
// replaced or re-sorted.
type Snapshot struct {
	Table string
	// Generation counts collection replacements since the table was created.
	Generation uint64
	// Rows is the sorted projection.
	Rows []Row
	// Checksum identifies the presented content and order.
	Checksum uint64
}

type subscription struct {
	id string
	fn func(Snapshot)
}

type broker struct {
	mu   sync.Mutex
	subs []subscription
}

// subscribe registers fn and returns a function that removes it.
func (b *broker) subscribe(fn func(Snapshot)) func() {
	id := uuid.NewString()
	b.mu.Lock()
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// publish calls every subscriber in registration order on the caller's
// goroutine.
func (b *broker) publish(s Snapshot) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.Unlock()
	for _, sub := range subs {
		sub.fn(s)
	}
}

func checksum(rows []Row) uint64 {
	h := xxh3.New()
	for _, r := range rows {
		writeRow(h, r)
	}
	return h.Sum64()
}
