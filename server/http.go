package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"pollarena/protocol"
)

// maxMoveBody 移动请求体上限
const maxMoveBody = 1 << 16

// Server 对外的 HTTP 接口：只做路由与编解码，逻辑全部委托给 Hub
type Server struct {
	Hub *Hub
}

// NewServer 创建 Server
func NewServer(hub *Hub) *Server {
	return &Server{Hub: hub}
}

// Register 注册全部路由；webDir 非空时 / 映射到静态资源
func (s *Server) Register(mux *http.ServeMux, webDir string) {
	mux.HandleFunc(protocol.PathRegister, s.HandleRegister)
	mux.HandleFunc(protocol.PathPositions, s.HandlePositions)
	mux.HandleFunc(protocol.PathMove, s.HandleMove)
	mux.HandleFunc(protocol.PathWaitPositions, s.HandleWait)
	mux.HandleFunc(protocol.PathWSPositions, s.HandleWS)
	mux.HandleFunc("/admin/config", s.HandleAdminConfig)
	mux.HandleFunc("/metrics", s.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if webDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(webDir)))
	}
}

// Handler 便于测试：返回已注册全部路由的 mux（不含静态资源）
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux, "")
	return mux
}

// HandleRegister GET /register  返回带引号的新标识
func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := s.Hub.IssueID()
	if err != nil {
		Log.Errorf("register: %v", err)
		http.Error(w, "cannot issue id", http.StatusInternalServerError)
		return
	}
	Log.Infof("registered player %s", id)
	writeJSON(w, http.StatusOK, id)
}

// HandlePositions GET /positions  立即返回快照
func (s *Server) HandlePositions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	positions, version := s.Hub.Snapshot()
	writeSnapshot(w, positions, version)
}

// HandleMove POST /positions/move  {"id","x","y"}
// 字段缺失或无法解析时仍返回 200（接受但忽略），StrictMoves 打开时返回 400
func (s *Server) HandleMove(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMoveBody))
	if err != nil {
		Log.Warnf("move: read body: %v", err)
		s.answerMove(w, false)
		return
	}
	var m protocol.MoveRequest
	if err := json.Unmarshal(body, &m); err != nil {
		Log.Warnf("move: invalid json: %v", err)
		s.answerMove(w, false)
		return
	}
	ok := s.Hub.Move(m)
	if !ok {
		Log.Warnf("move ignored: missing fields id=%q x=%v y=%v", m.ID, m.X != nil, m.Y != nil)
	} else {
		Log.Debugf("move %s -> (%.1f, %.1f)", m.ID, *m.X, *m.Y)
	}
	s.answerMove(w, ok)
}

func (s *Server) answerMove(w http.ResponseWriter, committed bool) {
	if !committed && s.Hub.StrictMoves() {
		http.Error(w, "move requires id, x and y", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
}

// HandleWait GET /wait/positions[?since=N]
// 下一次变更时返回快照；超时返回 204 且无响应体
func (s *Server) HandleWait(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var o *Observer
	if raw := r.URL.Query().Get(protocol.SinceParam); raw != "" {
		since, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		o = s.Hub.WaitSince(since)
	} else {
		o = s.Hub.Wait()
	}

	select {
	case u := <-o.C:
		if u.TimedOut {
			Log.Debugf("long-poll timed out after %s", s.Hub.WaitTimeout())
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeSnapshot(w, u.Positions, u.Version)
	case <-r.Context().Done():
		// 客户端已离开；观察者留在 Broker 中，由释放或超时回收
		Log.Debugf("long-poll client gone: %v", r.Context().Err())
	}
}

func writeSnapshot(w http.ResponseWriter, positions []protocol.Position, version uint64) {
	if positions == nil {
		positions = []protocol.Position{}
	}
	w.Header().Set(protocol.VersionHeader, strconv.FormatUint(version, 10))
	writeJSON(w, http.StatusOK, positions)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
