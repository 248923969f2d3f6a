package phone

import (
	"context"
	"sync"
)

type job struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// mailbox is an unbounded FIFO drained by the call loop. Pushing never
// blocks, so transport goroutines can hand events over safely.
type mailbox struct {
	mu     sync.Mutex
	jobs   []job
	closed bool
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) push(j job) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.jobs = append(m.jobs, j)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

func (m *mailbox) pop() (job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.jobs) == 0 {
		return job{}, false
	}
	j := m.jobs[0]
	m.jobs[0] = job{}
	m.jobs = m.jobs[1:]
	return j, true
}

// close rejects further pushes and hands back what was still queued.
func (m *mailbox) close() []job {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	rest := m.jobs
	m.jobs = nil
	return rest
}
