// Package eventloop runs document work on a single goroutine. Blocking work
// runs elsewhere through Go and posts its continuation back.
package eventloop

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Task is a unit of work executed on the loop goroutine.
type Task func(ctx context.Context)

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used for recovered task panics.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// Loop is a FIFO task queue drained by one goroutine at a time.
type Loop struct {
	mu      sync.Mutex
	queue   []Task
	pending int
	wake    chan struct{}
	logger  zerolog.Logger
}

// New constructs an empty loop.
func New(options ...Option) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Post enqueues fn. Safe from any goroutine.
func (l *Loop) Post(fn Task) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// Go runs work on a new goroutine and posts then with its result. The loop
// is not idle until the continuation has run.
func Go[T any](l *Loop, ctx context.Context, work func(context.Context) (T, error), then func(context.Context, T, error)) {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	go func() {
		value, err := work(ctx)
		l.mu.Lock()
		l.pending--
		l.queue = append(l.queue, func(ctx context.Context) {
			then(ctx, value, err)
		})
		l.mu.Unlock()
		l.signal()
	}()
}

// Pending reports queued tasks plus outstanding background work.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) + l.pending
}

// RunUntilIdle drains the queue, waiting for background work, until nothing
// is queued or outstanding.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	for {
		task, idle := l.next()
		if task != nil {
			l.run(ctx, task)
			continue
		}
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, l.pending == 0
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, false
}

func (l *Loop) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Err(fmt.Errorf("eventloop: task panic: %v", r)).Msg("recovered task panic")
		}
	}()
	task(ctx)
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
