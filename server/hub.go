package server

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"

	"pollarena/protocol"
)

// Config 同步服务配置
type Config struct {
	WaitTimeout time.Duration // 长轮询挂起上限
	StrictMoves bool          // 为 true 时非法移动返回 400，否则静默 200
	Random      io.Reader     // 标识随机源，nil 为 crypto/rand；须可并发读取
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{WaitTimeout: DefaultWaitTimeout}
}

// Hub 把 Store 与 Broker 放进同一个临界区：
// 变更、版本递增、释放在 mu 内一次完成，任何 Wait 要么在释放前入队、要么在释放后入队。
type Hub struct {
	mu      deadlock.Mutex
	store   *Store
	broker  *Broker
	version uint64

	waitTimeout atomic.Int64 // 纳秒，可由 /admin/config 热更新
	strict      atomic.Bool

	Metrics *Metrics
}

// NewHub 创建 Hub
func NewHub(cfg Config) *Hub {
	m := &Metrics{}
	h := &Hub{
		store:   NewStore(cfg.Random),
		broker:  NewBroker(m),
		Metrics: m,
	}
	h.SetWaitTimeout(cfg.WaitTimeout)
	h.strict.Store(cfg.StrictMoves)
	return h
}

// IssueID 签发新标识（不在位置表中建档，首次移动才出现）。
// 只读随机源，不进入临界区；随机源须可并发读取（crypto/rand 满足）
func (h *Hub) IssueID() (protocol.PlayerID, error) {
	id, err := h.store.IssueID()
	if err == nil {
		h.Metrics.IncIssued()
	}
	return id, err
}

// Move 应用一次移动并释放所有挂起的观察者；非法移动不会触达 Broker
func (h *Hub) Move(m protocol.MoveRequest) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.store.Move(m) {
		h.Metrics.IncRejected()
		return false
	}
	h.version++
	h.Metrics.IncCommitted()
	h.broker.Release(h.store.Snapshot(), h.version)
	return true
}

// Snapshot 当前位置与版本号
func (h *Hub) Snapshot() ([]protocol.Position, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store.Snapshot(), h.version
}

// Wait 等待下一次变更
func (h *Hub) Wait() *Observer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.broker.Wait(h.WaitTimeout())
}

// WaitSince 若版本已超过 since 则立即以当前快照完成，否则等待下一次变更
func (h *Hub) WaitSince(since uint64) *Observer {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.version > since {
		return fulfilled(Update{Positions: h.store.Snapshot(), Version: h.version})
	}
	return h.broker.Wait(h.WaitTimeout())
}

// Version 当前版本号
func (h *Hub) Version() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.version
}

// Pending 当前挂起的长轮询数
func (h *Hub) Pending() int { return h.broker.Pending() }

func (h *Hub) WaitTimeout() time.Duration { return time.Duration(h.waitTimeout.Load()) }

func (h *Hub) SetWaitTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultWaitTimeout
	}
	h.waitTimeout.Store(int64(d))
}

func (h *Hub) StrictMoves() bool     { return h.strict.Load() }
func (h *Hub) SetStrictMoves(v bool) { h.strict.Store(v) }
