package server

import (
	"time"

	"github.com/sasha-s/go-deadlock"

	"pollarena/protocol"
)

// DefaultWaitTimeout 长轮询挂起上限
const DefaultWaitTimeout = 30 * time.Second

// Update 一次长轮询的结果；TimedOut 表示“无更新”，与空列表不同
type Update struct {
	Positions []protocol.Position
	Version   uint64
	TimedOut  bool
}

// Observer 挂起中的长轮询；C 恰好收到一次结果
type Observer struct {
	C <-chan Update

	id         uint64
	ch         chan Update
	registered time.Time
	timer      *time.Timer
}

// Registered 注册时间
func (o *Observer) Registered() time.Time { return o.registered }

// Broker 批量挂起观察者，变更时整体释放，超时单独回收
type Broker struct {
	mu      deadlock.Mutex
	pending map[uint64]*Observer
	nextID  uint64
	metrics *Metrics
}

// NewBroker 创建 Broker；metrics 可为 nil
func NewBroker(metrics *Metrics) *Broker {
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &Broker{
		pending: make(map[uint64]*Observer),
		metrics: metrics,
	}
}

// Wait 注册一个新的观察者，timeout 后以“无更新”结束
func (b *Broker) Wait(timeout time.Duration) *Observer {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	ch := make(chan Update, 1) // 有缓冲：投递永不阻塞，请求方离开也不会泄漏
	b.mu.Lock()
	b.nextID++
	o := &Observer{C: ch, id: b.nextID, ch: ch, registered: time.Now()}
	b.pending[o.id] = o
	// 在锁内挂上定时器，expire 必须等到 o 已在 pending 中才可能执行
	o.timer = time.AfterFunc(timeout, func() { b.expire(o) })
	b.metrics.SetPending(len(b.pending))
	b.mu.Unlock()
	return o
}

// fulfilled 返回已完成的观察者（用于 since 已落后的请求，不进入 pending）
func fulfilled(u Update) *Observer {
	ch := make(chan Update, 1)
	ch <- u
	return &Observer{C: ch, ch: ch, registered: time.Now()}
}

// Release 以同一快照完成当前所有挂起的观察者。
// 先整体换出 pending 集合再通知，之后注册的观察者属于下一批。
func (b *Broker) Release(snapshot []protocol.Position, version uint64) int {
	b.mu.Lock()
	batch := b.pending
	b.pending = make(map[uint64]*Observer)
	b.metrics.SetPending(0)
	b.mu.Unlock()

	u := Update{Positions: snapshot, Version: version}
	b.metrics.AddRelease(len(batch))
	for _, o := range batch {
		o.timer.Stop()
		o.ch <- u
	}
	return len(batch)
}

// expire 超时回收；已被 Release 换出的观察者这里什么也不做
func (b *Broker) expire(o *Observer) {
	b.mu.Lock()
	if _, ok := b.pending[o.id]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.pending, o.id)
	b.metrics.SetPending(len(b.pending))
	b.mu.Unlock()

	b.metrics.IncTimedOut()
	o.ch <- Update{TimedOut: true}
}

// Pending 当前挂起数量
func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
