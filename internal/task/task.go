package task

import (
	"time"

	json "github.com/goccy/go-json"
)

// Status is a task lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusStopping  Status = "stopping"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Type names a strategy kind.
type Type string

const (
	TypeMarketMaker  Type = "market_maker"
	TypeSellShares   Type = "sell_shares"
	TypeSplitAndSell Type = "split_and_sell"
)

// maxLogEntries caps the in-memory log ring per task; older lines are
// dropped.
const maxLogEntries = 5000

// task is the supervisor's internal record. Fields are guarded by the
// supervisor mutex except stop/done which are safe to use unlocked.
type task struct {
	id        string
	taskType  Type
	config    json.RawMessage
	status    Status
	errMsg    string
	createdAt time.Time
	startedAt *time.Time
	stoppedAt *time.Time
	logs      []string
	stop      chan struct{}
	done      chan struct{}
}

// Snapshot is the externally visible view of a task.
type Snapshot struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Config    json.RawMessage `json:"config"`
	Status    Status          `json:"status"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	StartedAt *time.Time      `json:"startedAt,omitempty"`
	StoppedAt *time.Time      `json:"stoppedAt,omitempty"`
	LogCount  int             `json:"logCount"`
}

func (t *task) snapshot() *Snapshot {
	return &Snapshot{
		ID:        t.id,
		Type:      t.taskType,
		Config:    t.config,
		Status:    t.status,
		Error:     t.errMsg,
		CreatedAt: t.createdAt,
		StartedAt: t.startedAt,
		StoppedAt: t.stoppedAt,
		LogCount:  len(t.logs),
	}
}
