package task

import (
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Logger appends one human-readable line to the owning task's log.
type Logger func(format string, args ...interface{})

// StrategyFunc is the unit of work a task runs. It must watch stop and
// return promptly once it is closed. A nil return means the strategy
// finished; a non-nil error moves the task to the error state.
type StrategyFunc func(stop <-chan struct{}, log Logger) error

// Supervisor owns the task registry: creation, start/stop, log rings
// and live log subscribers. One goroutine per running task;
// cancellation is cooperative via the task's stop channel.
type Supervisor struct {
	mu     sync.Mutex
	tasks  map[string]*task
	order  []string
	subs   map[string]map[int]chan string
	subSeq int
	logger *zap.Logger
	now    func() time.Time
}

// NewSupervisor creates an empty supervisor.
func NewSupervisor(logger *zap.Logger) *Supervisor {
	return &Supervisor{
		tasks:  make(map[string]*task),
		subs:   make(map[string]map[int]chan string),
		logger: logger,
		now:    time.Now,
	}
}

// Create registers a new pending task and returns its id.
func (s *Supervisor) Create(taskType Type, config json.RawMessage) string {
	id := "task_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id] = &task{
		id:        id,
		taskType:  taskType,
		config:    config,
		status:    StatusPending,
		createdAt: s.now(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	s.order = append(s.order, id)

	TasksCreatedTotal.WithLabelValues(string(taskType)).Inc()
	return id
}

// Start launches a pending task's strategy on its own goroutine.
func (s *Supervisor) Start(id string, strategy StrategyFunc) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("task %s not found", id)
	}
	if t.status != StatusPending {
		s.mu.Unlock()
		return fmt.Errorf("task %s is %s, not pending", id, t.status)
	}
	t.status = StatusRunning
	startedAt := s.now()
	t.startedAt = &startedAt
	s.mu.Unlock()

	TasksRunning.Inc()
	go s.run(t, strategy)
	return nil
}

func (s *Supervisor) run(t *task, strategy StrategyFunc) {
	defer close(t.done)
	defer TasksRunning.Dec()

	err := s.invoke(t, strategy)

	s.mu.Lock()
	switch {
	case err != nil:
		t.status = StatusError
		t.errMsg = err.Error()
	case t.status == StatusStopping:
		t.status = StatusStopped
	default:
		t.status = StatusCompleted
	}
	stoppedAt := s.now()
	t.stoppedAt = &stoppedAt
	final := t.status
	s.mu.Unlock()

	if err != nil {
		s.Log(t.id, "Task error: %v", err)
		s.logger.Warn("task-failed", zap.String("task-id", t.id), zap.Error(err))
	}
	s.logger.Info("task-finished",
		zap.String("task-id", t.id),
		zap.String("status", string(final)))
}

// invoke runs the strategy, converting a panic into an error so one
// broken task cannot take down the process or its siblings.
func (s *Supervisor) invoke(t *task, strategy StrategyFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panic: %v", r)
		}
	}()
	return strategy(t.stop, s.taskLogger(t.id))
}

// Stop requests a running task to exit. The stop channel, once closed,
// stays closed for the task's lifetime.
func (s *Supervisor) Stop(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	if t.status != StatusRunning {
		return fmt.Errorf("task %s is %s, not running", id, t.status)
	}
	t.status = StatusStopping
	close(t.stop)
	return nil
}

// Get returns a task snapshot.
func (s *Supervisor) Get(id string) (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return t.snapshot(), true
}

// List returns all tasks in creation order.
func (s *Supervisor) List() []*Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Snapshot, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id].snapshot())
	}
	return out
}

// Running returns tasks currently in the running state.
func (s *Supervisor) Running() []*Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Snapshot
	for _, id := range s.order {
		if t := s.tasks[id]; t.status == StatusRunning {
			out = append(out, t.snapshot())
		}
	}
	return out
}

// Logs returns up to limit most recent log lines for a task.
func (s *Supervisor) Logs(id string, limit int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	logs := t.logs
	if limit > 0 && len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}
	out := make([]string, len(logs))
	copy(out, logs)
	return out
}

// Subscribe attaches a live log channel to a task. Lines that cannot
// be delivered without blocking are dropped for that subscriber. The
// returned func detaches the subscription.
func (s *Supervisor) Subscribe(id string) (<-chan string, func()) {
	ch := make(chan string, 64)

	s.mu.Lock()
	s.subSeq++
	key := s.subSeq
	if s.subs[id] == nil {
		s.subs[id] = make(map[int]chan string)
	}
	s.subs[id][key] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if set, ok := s.subs[id]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(s.subs, id)
			}
		}
	}
	return ch, cancel
}

// Done exposes a task's completion channel, closed when its goroutine
// exits.
func (s *Supervisor) Done(id string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return t.done
}

// Log appends a timestamped line to a task's ring and fans it out to
// subscribers. Slow subscribers miss lines rather than stall the
// strategy.
func (s *Supervisor) Log(id string, format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] %s", s.now().Format("15:04:05"), fmt.Sprintf(format, args...))

	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	t.logs = append(t.logs, line)
	if len(t.logs) > maxLogEntries {
		t.logs = t.logs[len(t.logs)-maxLogEntries:]
	}
	var targets []chan string
	for _, ch := range s.subs[id] {
		targets = append(targets, ch)
	}
	s.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- line:
		default:
		}
	}
}

func (s *Supervisor) taskLogger(id string) Logger {
	return func(format string, args ...interface{}) {
		s.Log(id, format, args...)
	}
}
