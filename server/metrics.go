package server

import (
	"sync/atomic"
)

// Metrics 同步服务运行期的关键指标（用于监控与调试）
type Metrics struct {
	IDsIssued         int64 // 签发的玩家标识数
	MovesCommitted    int64 // 生效的移动
	MovesRejected     int64 // 字段缺失被忽略的移动
	Releases          int64 // 释放批次数
	ObserversReleased int64 // 因变更被唤醒的长轮询数
	ObserversTimedOut int64 // 超时结束的长轮询数
	PendingObservers  int64 // 当前挂起数（瞬时值）
	PushClients       int64 // 当前 WebSocket 推送连接数（瞬时值）
}

func (m *Metrics) IncIssued() { atomic.AddInt64(&m.IDsIssued, 1) }
func (m *Metrics) IncCommitted() { atomic.AddInt64(&m.MovesCommitted, 1) }
func (m *Metrics) IncRejected() { atomic.AddInt64(&m.MovesRejected, 1) }
func (m *Metrics) IncTimedOut() { atomic.AddInt64(&m.ObserversTimedOut, 1) }
func (m *Metrics) AddRelease(n int) {
	atomic.AddInt64(&m.Releases, 1)
	atomic.AddInt64(&m.ObserversReleased, int64(n))
}
func (m *Metrics) SetPending(n int) { atomic.StoreInt64(&m.PendingObservers, int64(n)) }
func (m *Metrics) AddPushClients(d int) { atomic.AddInt64(&m.PushClients, int64(d)) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"ids_issued":          atomic.LoadInt64(&m.IDsIssued),
		"moves_committed":     atomic.LoadInt64(&m.MovesCommitted),
		"moves_rejected":      atomic.LoadInt64(&m.MovesRejected),
		"releases":            atomic.LoadInt64(&m.Releases),
		"observers_released":  atomic.LoadInt64(&m.ObserversReleased),
		"observers_timed_out": atomic.LoadInt64(&m.ObserversTimedOut),
		"pending_observers":   atomic.LoadInt64(&m.PendingObservers),
		"push_clients":        atomic.LoadInt64(&m.PushClients),
	}
}
