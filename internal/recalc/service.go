package recalc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/statbot-io/statbot/internal/directory"
	"github.com/statbot-io/statbot/internal/queue"
)

const (
	// DefaultWorkers matches the original deployment's pool size.
	DefaultWorkers = 5

	// defaultNotifyIdle bounds how long the notification worker waits for
	// more messages to coalesce after the first one.
	defaultNotifyIdle = time.Second

	// defaultNotifyMaxLen caps a coalesced notification's length, staying
	// under typical chat-platform message limits.
	defaultNotifyMaxLen = 1700
)

// Notifier delivers a progress notification. Best effort; errors are logged
// and dropped.
type Notifier func(ctx context.Context, text string) error

// Service owns the recalculation queue, worker pool and notification queue.
// Construct one per process; Start before enqueueing, Stop on shutdown.
type Service struct {
	engine *Engine
	dir    directory.Directory
	notify Notifier

	workers      int
	notifyIdle   time.Duration
	notifyMaxLen int

	tasks         *queue.Queue[Task]
	notifications *queue.Queue[string]

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithWorkers overrides the recalculation worker count.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithNotifyLimits overrides the coalescing idle timeout and size ceiling.
func WithNotifyLimits(idle time.Duration, maxLen int) Option {
	return func(s *Service) {
		if idle > 0 {
			s.notifyIdle = idle
		}
		if maxLen > 0 {
			s.notifyMaxLen = maxLen
		}
	}
}

// NewService creates a stopped service. notify may be nil, in which case
// progress messages are only logged.
func NewService(engine *Engine, dir directory.Directory, notify Notifier, opts ...Option) *Service {
	s := &Service{
		engine:        engine,
		dir:           dir,
		notify:        notify,
		workers:       DefaultWorkers,
		notifyIdle:    defaultNotifyIdle,
		notifyMaxLen:  defaultNotifyMaxLen,
		tasks:         queue.New[Task](),
		notifications: queue.New[string](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue adds a task to the work queue. Never blocks.
func (s *Service) Enqueue(task Task) {
	s.tasks.Put(task)
}

// QueueLen returns the number of tasks waiting for a worker.
func (s *Service) QueueLen() int {
	return s.tasks.Len()
}

// Start launches the worker pool and the notification worker.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go func(id int) {
			defer s.wg.Done()
			s.workerLoop(ctx, id)
		}(i)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.notifyLoop(ctx)
	}()

	log.Info().Int("workers", s.workers).Msg("recalculation service started")
}

// Stop cancels the workers. In-flight tasks are abandoned at their next
// suspension point; an incremental recalculation is the recovery path for
// whatever they left behind.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	log.Info().Msg("recalculation service stopped")
}

// workerLoop drains the task queue. A task failure is logged and dropped;
// the worker moves on to the next task.
func (s *Service) workerLoop(ctx context.Context, id int) {
	for {
		task, err := s.tasks.Get(ctx)
		if err != nil {
			return
		}
		s.notifications.Put(fmt.Sprintf("Starting statistics recalculation on %s.", task.Target.Ref()))
		count, err := s.engine.Recalculate(ctx, task)
		if err != nil {
			log.Err(err).
				Int("worker", id).
				Str("task", task.ID.String()).
				Int64("channel", task.Target.ChannelID).
				Int64("thread", task.Target.ThreadID).
				Msg("recalculation task failed")
			continue
		}
		s.notifications.Put(fmt.Sprintf("Finished statistics recalculation on %s. %d messages were processed.", task.Target.Ref(), count))
	}
}

// notifyLoop drains the notification queue, coalescing bursts: after the
// first message it keeps absorbing queued messages until the idle timeout
// elapses or the combined text would exceed the size ceiling.
func (s *Service) notifyLoop(ctx context.Context) {
	for {
		msg, err := s.notifications.Get(ctx)
		if err != nil {
			return
		}
		start := time.Now()
		for time.Since(start) < s.notifyIdle && len(msg) < s.notifyMaxLen {
			waitCtx, cancel := context.WithTimeout(ctx, s.notifyIdle)
			next, err := s.notifications.Get(waitCtx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					s.deliver(ctx, msg)
					return
				}
				break
			}
			msg += "\n" + next
		}
		s.deliver(ctx, msg)
	}
}

func (s *Service) deliver(ctx context.Context, text string) {
	if s.notify == nil {
		log.Info().Msg(text)
		return
	}
	if err := s.notify(ctx, text); err != nil {
		log.Err(err).Msg("progress notification failed")
	}
}
