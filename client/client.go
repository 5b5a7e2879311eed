package client

import (
	"context"
	"time"

	"pollarena/protocol"
)

// Point 画布坐标系中的一次点击
type Point struct {
	X, Y float64
}

// Surface 渲染面：按自己的节奏绘制当前位置，并上报点击
type Surface interface {
	Render(positions []protocol.Position)
	Clicks() <-chan Point
}

// DefaultFrameInterval ≈30 FPS
const DefaultFrameInterval = 33 * time.Millisecond

// Client 把同步循环、动画引擎和渲染面接在一起（显式依赖，无全局回调）
type Client struct {
	Sync    *SyncLoop
	Engine  *Engine
	Surface Surface

	TickInterval  time.Duration
	FrameInterval time.Duration
}

// New 组装 Client
func New(cfg Config, step float64, surface Surface) *Client {
	engine := NewEngine(step)
	return &Client{
		Sync:          NewSyncLoop(engine, cfg),
		Engine:        engine,
		Surface:       surface,
		TickInterval:  DefaultTickInterval,
		FrameInterval: DefaultFrameInterval,
	}
}

// Run 三条独立节奏：长轮询、动画 Tick、渲染帧；ctx 结束时全部退出
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- c.Sync.Run(ctx) }()
	go c.Engine.Run(ctx, c.TickInterval)

	frame := c.FrameInterval
	if frame <= 0 {
		frame = DefaultFrameInterval
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	clicks := c.Surface.Clicks()
	for {
		select {
		case <-ctx.Done():
			return <-errc
		case err := <-errc:
			return err
		case <-ticker.C:
			c.Surface.Render(c.Engine.Positions())
		case p, ok := <-clicks:
			if !ok {
				clicks = nil
				continue
			}
			c.Sync.Move(p.X, p.Y)
		}
	}
}
