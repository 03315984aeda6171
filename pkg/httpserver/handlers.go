package httpserver

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mkarpov/opinion-mm/internal/storage"
	"github.com/mkarpov/opinion-mm/internal/task"
	"github.com/mkarpov/opinion-mm/pkg/numeric"
	"github.com/mkarpov/opinion-mm/pkg/types"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response-encode-failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

type statusResponse struct {
	RunningTasks int      `json:"running_tasks"`
	TotalTrades  int      `json:"total_trades"`
	TotalProfit  float64  `json:"total_profit"`
	USDTBalance  *float64 `json:"usdt_balance,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		RunningTasks: len(s.sup.Running()),
	}

	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Warn("trade-stats-failed", zap.Error(err))
	} else {
		resp.TotalTrades = stats.TotalTrades
		resp.TotalProfit = stats.TotalProfit
	}

	if s.balance != nil {
		if usdt, ok := s.balance(); ok {
			resp.USDTBalance = &usdt
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AuthToken string `json:"auth_token"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.AuthToken == "" {
		s.writeError(w, http.StatusBadRequest, "auth_token is required")
		return
	}

	s.creds.SetAuthToken(req.AuthToken)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Auth token updated for all tasks",
	})
}

type positionView struct {
	TopicID       int64   `json:"topic_id"`
	ParentTopicID int64   `json:"parent_topic_id"`
	Title         string  `json:"title"`
	Outcome       string  `json:"outcome"`
	Side          string  `json:"side"`
	Shares        float64 `json:"shares"`
	Value         float64 `json:"value"`
	LastPrice     float64 `json:"last_price"`
	TokenID       string  `json:"token_id"`
}

// handlePositions lists holdings worth acting on: available shares
// above dust with a last-price value of at least one collateral unit,
// the same filter the sell strategy applies.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TopicID   int64  `json:"topic_id"`
		AuthToken string `json:"auth_token"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	gw, err := s.newGateway(req.AuthToken)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	positions, err := gw.ListPositions(r.Context(), req.TopicID)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	views := make([]positionView, 0, len(positions))
	for i := range positions {
		if view, ok := positionToView(&positions[i]); ok {
			views = append(views, view)
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"positions": views,
		"total":     len(views),
	})
}

func positionToView(pos *types.Position) (positionView, bool) {
	total, err := numeric.FromString(pos.Quantity)
	if err != nil {
		return positionView{}, false
	}
	frozen, err := numeric.FromString(pos.FrozenQuantity)
	if err != nil {
		return positionView{}, false
	}
	lastPrice, err := numeric.FromString(pos.LastPrice)
	if err != nil {
		return positionView{}, false
	}

	available := total.Sub(frozen)
	availableF, _ := available.Float64()
	lastPriceF, _ := lastPrice.Float64()
	value := availableF * lastPriceF
	if availableF <= 0.01 || value < 1.0 {
		return positionView{}, false
	}

	side := "NO"
	if pos.IsYes() {
		side = "YES"
	}
	return positionView{
		TopicID:       pos.TopicID,
		ParentTopicID: pos.ParentTopicID,
		Title:         pos.TopicTitle,
		Outcome:       pos.OutcomeTitle,
		Side:          side,
		Shares:        round2(availableF),
		Value:         round2(value),
		LastPrice:     lastPriceF,
		TokenID:       pos.TokenID,
	}, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// handleListTasks merges live supervisor tasks with persisted history.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	snaps := s.sup.List()
	known := make(map[string]bool, len(snaps))
	for _, snap := range snaps {
		known[snap.ID] = true
	}

	records, err := s.store.ListTasks(r.Context(), 100)
	if err != nil {
		s.logger.Warn("task-history-failed", zap.Error(err))
	}
	for i := range records {
		if known[records[i].ID] {
			continue
		}
		snaps = append(snaps, recordToSnapshot(&records[i]))
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	s.writeJSON(w, http.StatusOK, snaps)
}

func recordToSnapshot(record *storage.TaskRecord) *task.Snapshot {
	return &task.Snapshot{
		ID:        record.ID,
		Type:      task.Type(record.Type),
		Config:    json.RawMessage(record.Config),
		Status:    task.Status(record.Status),
		Error:     record.Error,
		CreatedAt: record.CreatedAt,
		StartedAt: record.StartedAt,
		StoppedAt: record.StoppedAt,
	}
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type   string          `json:"type"`
		Config json.RawMessage `json:"config"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	taskType := task.Type(req.Type)
	switch taskType {
	case task.TypeMarketMaker, task.TypeSellShares, task.TypeSplitAndSell:
	default:
		s.writeError(w, http.StatusBadRequest, "unknown task type: "+req.Type)
		return
	}

	id := s.sup.Create(taskType, req.Config)
	if err := s.store.RecordTask(r.Context(), &storage.TaskRecord{
		ID:        id,
		Type:      req.Type,
		Status:    string(task.StatusPending),
		Config:    string(req.Config),
		CreatedAt: time.Now(),
	}); err != nil {
		s.logger.Warn("task-record-failed", zap.String("task-id", id), zap.Error(err))
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": string(task.StatusPending),
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.sup.Get(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, ok := s.sup.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	strategy, err := s.launch(snap)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.sup.Start(id, strategy); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateTaskStatus(r.Context(), id, string(task.StatusRunning), ""); err != nil {
		s.logger.Warn("task-status-failed", zap.String("task-id", id), zap.Error(err))
	}
	go s.persistFinalStatus(id)

	s.writeJSON(w, http.StatusOK, map[string]string{"status": string(task.StatusRunning)})
}

// persistFinalStatus waits for a task goroutine to finish and records
// its terminal state.
func (s *Server) persistFinalStatus(id string) {
	<-s.sup.Done(id)
	snap, ok := s.sup.Get(id)
	if !ok {
		return
	}
	ctx, cancel := contextWithTimeout()
	defer cancel()
	if err := s.store.UpdateTaskStatus(ctx, id, string(snap.Status), snap.Error); err != nil {
		s.logger.Warn("task-status-failed", zap.String("task-id", id), zap.Error(err))
	}
}

func (s *Server) handleStopTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sup.Stop(id); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateTaskStatus(r.Context(), id, string(task.StatusStopped), ""); err != nil {
		s.logger.Warn("task-status-failed", zap.String("task-id", id), zap.Error(err))
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": string(task.StatusStopping)})
}

func (s *Server) handleTaskLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := queryInt(r, "limit", 100)

	logs := s.sup.Logs(id, limit)
	if logs == nil {
		logs = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"logs": logs})
}

type tradeView struct {
	ID          int64    `json:"id"`
	Timestamp   string   `json:"timestamp"`
	TaskID      string   `json:"task_id"`
	EventName   string   `json:"event_name"`
	OutcomeName string   `json:"outcome_name"`
	Side        string   `json:"side"`
	Action      string   `json:"action"`
	Price       float64  `json:"price"`
	Shares      float64  `json:"shares"`
	AmountUSDT  float64  `json:"amount_usdt"`
	OrderID     string   `json:"order_id"`
	Mode        string   `json:"mode"`
	Status      string   `json:"status"`
	ProfitUSDT  *float64 `json:"profit_usdt,omitempty"`
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	trades, err := s.store.ListTrades(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]tradeView, 0, len(trades))
	for _, trade := range trades {
		views = append(views, tradeView{
			ID:          trade.ID,
			Timestamp:   trade.Timestamp.Format(time.RFC3339),
			TaskID:      trade.TaskID,
			EventName:   trade.EventName,
			OutcomeName: trade.OutcomeName,
			Side:        trade.Side,
			Action:      trade.Action,
			Price:       trade.Price,
			Shares:      trade.Shares,
			AmountUSDT:  trade.AmountUSDT,
			OrderID:     trade.OrderID,
			Mode:        trade.Mode,
			Status:      trade.Status,
			ProfitUSDT:  trade.ProfitUSDT,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"trades": views})
}

func (s *Server) handleTradeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
