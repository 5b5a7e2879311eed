package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// adminConfig 可热更新的配置；POST 时只更新出现的字段
type adminConfig struct {
	WaitTimeoutMs *int64 `json:"waitTimeoutMs,omitempty"`
	StrictMoves   *bool  `json:"strictMoves,omitempty"`
}

// HandleAdminConfig 提供同步配置的读取与更新
// GET /admin/config   返回当前配置
// POST /admin/config  以 JSON 载荷更新部分字段
func (s *Server) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ms := s.Hub.WaitTimeout().Milliseconds()
		strict := s.Hub.StrictMoves()
		writeJSON(w, http.StatusOK, adminConfig{WaitTimeoutMs: &ms, StrictMoves: &strict})
	case http.MethodPost:
		var body adminConfig
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.WaitTimeoutMs != nil {
			if *body.WaitTimeoutMs <= 0 {
				http.Error(w, "waitTimeoutMs must be positive", http.StatusBadRequest)
				return
			}
			s.Hub.SetWaitTimeout(time.Duration(*body.WaitTimeoutMs) * time.Millisecond)
		}
		if body.StrictMoves != nil {
			s.Hub.SetStrictMoves(*body.StrictMoves)
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		Log.Infof("config updated: waitTimeout=%s strictMoves=%v", s.Hub.WaitTimeout(), s.Hub.StrictMoves())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleMetrics 输出运行指标
// GET /metrics
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"version": s.Hub.Version(),
		"metrics": s.Hub.Metrics.Snapshot(),
	}
	writeJSON(w, http.StatusOK, payload)
}
