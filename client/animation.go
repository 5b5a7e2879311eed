package client

import (
	"sort"
	"sync"
	"sync/atomic"

	"pollarena/protocol"
)

// DefaultStep 每个 Tick 每个轴最多移动的像素
const DefaultStep = 10

type positionMap map[protocol.PlayerID]protocol.Position

// Engine 动画引擎：服务端位置只作为目标，渲染位置按固定步长逼近。
// 目标表整体替换（不可变快照），与 Tick 之间没有共享锁。
type Engine struct {
	step    float64
	targets atomic.Pointer[positionMap]

	mu       sync.RWMutex
	rendered positionMap
}

// NewEngine 创建动画引擎；step <= 0 时使用 DefaultStep
func NewEngine(step float64) *Engine {
	if step <= 0 {
		step = DefaultStep
	}
	e := &Engine{step: step, rendered: make(positionMap)}
	empty := make(positionMap)
	e.targets.Store(&empty)
	return e
}

// SetTargets 以新列表整体替换目标（后写者胜，不合并）
func (e *Engine) SetTargets(positions []protocol.Position) {
	next := make(positionMap, len(positions))
	for _, p := range positions {
		next[p.ID] = p
	}
	e.targets.Store(&next)
}

// Tick 推进一帧：新出现的玩家直接落位，其余逐轴逼近目标
func (e *Engine) Tick() {
	targets := *e.targets.Load()
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, target := range targets {
		cur, ok := e.rendered[id]
		if !ok {
			e.rendered[id] = target
			continue
		}
		cur.X = approach(cur.X, target.X, e.step)
		cur.Y = approach(cur.Y, target.Y, e.step)
		e.rendered[id] = cur
	}
}

// approach 向 target 移动至多 step，不越过
func approach(cur, target, step float64) float64 {
	switch {
	case target > cur:
		if target-cur <= step {
			return target
		}
		return cur + step
	case target < cur:
		if cur-target <= step {
			return target
		}
		return cur - step
	default:
		return cur
	}
}

// Positions 当前渲染位置（按 id 排序，便于稳定绘制）
func (e *Engine) Positions() []protocol.Position {
	e.mu.RLock()
	out := make([]protocol.Position, 0, len(e.rendered))
	for _, p := range e.rendered {
		out = append(out, p)
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Rendered 某个玩家当前的渲染位置
func (e *Engine) Rendered(id protocol.PlayerID) (protocol.Position, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.rendered[id]
	return p, ok
}

// Target 某个玩家当前的目标位置
func (e *Engine) Target(id protocol.PlayerID) (protocol.Position, bool) {
	p, ok := (*e.targets.Load())[id]
	return p, ok
}

// TargetCount 目标表大小
func (e *Engine) TargetCount() int { return len(*e.targets.Load()) }
