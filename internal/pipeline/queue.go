package pipeline

import (
	"errors"
	"sync"

	"github.com/newslookout/newslookout/internal/domain"
)

// ErrQueueClosed is returned by Send after the receiving side has been
// dropped. It occurs only during shutdown races; senders log and drop
// the item.
var ErrQueueClosed = errors.New("queue closed")

// Queue is an unbounded FIFO of documents connecting two stages.
// Sending transfers ownership of the document. A queue may have many
// senders but a single receiver; closing the last sender is the
// end-of-stream signal, no explicit close operation exists.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []*domain.Document
	senders  int
	recvDown bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Sender returns a new sending handle. All handles must be created
// before the receiver starts draining, otherwise an empty queue with no
// senders reads as end-of-stream.
func (q *Queue) Sender() *Sender {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.senders++
	return &Sender{q: q}
}

// Recv blocks until a document is available or end-of-stream.
// It returns (nil, false) once every sender has closed and the backlog
// is drained. Documents come out in the order they went in.
func (q *Queue) Recv() (*domain.Document, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && q.senders > 0 {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}

	doc := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return doc, true
}

// DropReceiver marks the receiving side as gone. Subsequent sends fail
// with ErrQueueClosed. Used only during teardown.
func (q *Queue) DropReceiver() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.recvDown = true
	q.items = nil
}

// Sender is one sending handle on a queue. Safe for use by a single
// goroutine; stages each own their handle.
type Sender struct {
	q    *Queue
	once sync.Once
}

// Send enqueues a document. The send never blocks; it fails only when
// the receiver has been dropped.
func (s *Sender) Send(doc *domain.Document) error {
	q := s.q
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.recvDown {
		return ErrQueueClosed
	}
	q.items = append(q.items, doc)
	q.cond.Signal()
	return nil
}

// Close drops this sending handle. When the last handle closes, the
// receiver sees end-of-stream after draining the backlog. Close is
// idempotent.
func (s *Sender) Close() {
	s.once.Do(func() {
		q := s.q
		q.mu.Lock()
		defer q.mu.Unlock()
		q.senders--
		if q.senders == 0 {
			q.cond.Broadcast()
		}
	})
}
