package client

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"pollarena/protocol"
)

// State 同步循环状态
type State int32

const (
	Unregistered State = iota
	Registering
	Syncing
	Stopped
)

func (s State) String() string {
	switch s {
	case Unregistered:
		return "unregistered"
	case Registering:
		return "registering"
	case Syncing:
		return "syncing"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config 同步循环配置
type Config struct {
	BaseURL     string
	HTTPClient  *http.Client
	Logger      *zap.SugaredLogger
	PollTimeout time.Duration // 单次长轮询的客户端上限，应大于服务端挂起时间
	MoveTimeout time.Duration
	MinBackoff  time.Duration // 失败后下一次请求前的等待，逐次翻倍
	MaxBackoff  time.Duration
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = zap.NewNop().Sugar()
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 45 * time.Second
	}
	if c.MoveTimeout <= 0 {
		c.MoveTimeout = 5 * time.Second
	}
	if c.MinBackoff <= 0 {
		c.MinBackoff = 250 * time.Millisecond
	}
	if c.MaxBackoff < c.MinBackoff {
		c.MaxBackoff = 5 * time.Second
		if c.MaxBackoff < c.MinBackoff {
			c.MaxBackoff = c.MinBackoff
		}
	}
}

// SyncLoop 注册 → 首次快照 → 持续长轮询，每份位置列表交给 Engine
type SyncLoop struct {
	api    *API
	engine *Engine
	cfg    Config
	log    *zap.SugaredLogger

	state  atomic.Int32
	id     atomic.Pointer[protocol.PlayerID]
	rounds atomic.Int64
}

// NewSyncLoop 创建同步循环
func NewSyncLoop(engine *Engine, cfg Config) *SyncLoop {
	cfg.defaults()
	return &SyncLoop{
		api:    NewAPI(cfg.BaseURL, cfg.HTTPClient),
		engine: engine,
		cfg:    cfg,
		log:    cfg.Logger,
	}
}

// State 当前状态
func (l *SyncLoop) State() State { return State(l.state.Load()) }

func (l *SyncLoop) setState(s State) {
	l.state.Store(int32(s))
	l.log.Debugf("sync state -> %s", s)
}

// ID 已注册的标识
func (l *SyncLoop) ID() (protocol.PlayerID, bool) {
	p := l.id.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// Rounds 已交给 Engine 的位置列表数（含首次快照）
func (l *SyncLoop) Rounds() int64 { return l.rounds.Load() }

// Run 运行直到 ctx 结束；单次失败只视为“无更新”，从不终止循环
func (l *SyncLoop) Run(ctx context.Context) error {
	defer l.setState(Stopped)

	l.setState(Registering)
	id, err := l.register(ctx)
	if err != nil {
		return err
	}
	l.id.Store(&id)
	l.log.Infof("registered as %s", id)

	l.setState(Syncing)
	var since uint64
	if snap, err := l.api.Snapshot(ctx); err != nil {
		// 从 since=0 开始长轮询，服务端已有变更时会立即返回
		l.log.Warnf("initial snapshot failed: %v", err)
	} else {
		since = snap.Version
		l.apply(snap)
	}
	return l.poll(ctx, since)
}

// register 失败后退避重试，直到成功或 ctx 结束
func (l *SyncLoop) register(ctx context.Context) (protocol.PlayerID, error) {
	b := newBackoff(l.cfg.MinBackoff, l.cfg.MaxBackoff)
	for {
		id, err := l.api.Register(ctx)
		if err == nil {
			return id, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		d := b.next()
		l.log.Warnf("register failed, retry in %s: %v", d, err)
		if err := sleep(ctx, d); err != nil {
			return "", err
		}
	}
}

type pollOutcome struct {
	res PollResult
	err error
}

// poll 长轮询主循环：拿到结果后先发出下一次请求，再处理本次结果，
// 保证服务端释放时本客户端总有一个观察者挂着
func (l *SyncLoop) poll(ctx context.Context, since uint64) error {
	b := newBackoff(l.cfg.MinBackoff, l.cfg.MaxBackoff)
	next := l.startPoll(ctx, since, 0)
	for {
		var out pollOutcome
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out = <-next:
		}

		var delay time.Duration
		switch {
		case out.err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			delay = b.next()
			l.log.Warnf("long-poll failed, treating as no update (retry in %s): %v", delay, out.err)
		case out.res.Updated:
			b.reset()
			since = out.res.Version
		default:
			b.reset()
			l.log.Debugf("long-poll: no update")
		}

		next = l.startPoll(ctx, since, delay)

		if out.err == nil && out.res.Updated {
			l.apply(out.res)
		}
	}
}

func (l *SyncLoop) startPoll(ctx context.Context, since uint64, delay time.Duration) <-chan pollOutcome {
	ch := make(chan pollOutcome, 1)
	go func() {
		if delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				ch <- pollOutcome{err: err}
				return
			}
		}
		pctx, cancel := context.WithTimeout(ctx, l.cfg.PollTimeout)
		defer cancel()
		res, err := l.api.Wait(pctx, since)
		ch <- pollOutcome{res: res, err: err}
	}()
	return ch
}

func (l *SyncLoop) apply(res PollResult) {
	l.engine.SetTargets(res.Positions)
	l.rounds.Add(1)
}

// Move 发出移动请求后立即返回（不等待完成）；尚未注册时返回 false
func (l *SyncLoop) Move(x, y float64) bool {
	id, ok := l.ID()
	if !ok {
		return false
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.cfg.MoveTimeout)
		defer cancel()
		if err := l.api.Move(ctx, protocol.NewMove(id, x, y)); err != nil {
			l.log.Warnf("move (%.0f, %.0f) failed: %v", x, y, err)
		}
	}()
	return true
}

// backoff 指数退避
type backoff struct {
	min, max, cur time.Duration
}

func newBackoff(min, max time.Duration) *backoff {
	return &backoff{min: min, max: max}
}

func (b *backoff) next() time.Duration {
	if b.cur == 0 {
		b.cur = b.min
	} else {
		b.cur *= 2
		if b.cur > b.max {
			b.cur = b.max
		}
	}
	return b.cur
}

func (b *backoff) reset() { b.cur = 0 }

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
