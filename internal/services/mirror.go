package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/phonebind/internal/logging"
	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/dmitrijs2005/phonebind/internal/repositories/submissions"
)

const (
	mirrorQueueSize    = 64
	mirrorErrorsSize   = 16
	mirrorWriteTimeout = 10 * time.Second
)

// ErrMirrorFull is reported when an event is dropped because the queue is
// full.
var ErrMirrorFull = errors.New("submissions mirror queue is full")

// Mirror copies events into the global submissions log on its own
// goroutine. Submit never blocks.
type Mirror struct {
	repo submissions.Repository
	log  logging.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan models.Event
	errs   chan error
	done   chan struct{}
}

// NewMirror starts the writer goroutine. Close must be called to drain it.
func NewMirror(repo submissions.Repository, log logging.Logger) *Mirror {
	if log == nil {
		log = logging.Discard()
	}
	m := &Mirror{
		repo:  repo,
		log:   log,
		queue: make(chan models.Event, mirrorQueueSize),
		errs:  make(chan error, mirrorErrorsSize),
		done:  make(chan struct{}),
	}
	go m.run()
	return m
}

// Submit enqueues ev. It reports false when the mirror is closed or full.
func (m *Mirror) Submit(ev models.Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false
	}
	select {
	case m.queue <- ev:
		return true
	default:
		m.report(fmt.Errorf("%w: dropped event %v", ErrMirrorFull, ev[models.EventKeyID]))
		return false
	}
}

// Errors delivers mirror write failures. Unread errors are dropped once the
// buffer is full.
func (m *Mirror) Errors() <-chan error {
	return m.errs
}

// Close stops accepting events and waits for queued ones to be written.
func (m *Mirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		<-m.done
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()
	<-m.done
}

func (m *Mirror) run() {
	defer close(m.done)
	defer close(m.errs)
	for ev := range m.queue {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorWriteTimeout)
		if err := m.repo.Append(ctx, ev); err != nil {
			m.report(fmt.Errorf("mirror event %v: %w", ev[models.EventKeyID], err))
		}
		cancel()
	}
}

func (m *Mirror) report(err error) {
	m.log.Warn(context.Background(), "submissions mirror write failed", "error", err)
	select {
	case m.errs <- err:
	default:
	}
}
