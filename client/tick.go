package client

import (
	"context"
	"time"
)

const (
	// TicksPerSecond 动画推进频率（60 TPS），与网络和渲染节奏都无关
	TicksPerSecond = 60
)

// DefaultTickInterval ≈16ms
var DefaultTickInterval = time.Second / TicksPerSecond

// Run 以固定周期调用 Tick，直到 ctx 结束
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}
