package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pollarena/protocol"
)

type fakeSurface struct {
	mu     sync.Mutex
	frames [][]protocol.Position
	clicks chan Point
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{clicks: make(chan Point, 4)}
}

func (s *fakeSurface) Render(positions []protocol.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, positions)
}

func (s *fakeSurface) Clicks() <-chan Point { return s.clicks }

func (s *fakeSurface) last() []protocol.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

func TestClientClickMovesAndAnimates(t *testing.T) {
	ts, hub := newSyncServer(t, time.Minute, nil)
	surface := newFakeSurface()
	c := New(testConfig(ts.URL), 10, surface)
	c.TickInterval = time.Millisecond
	c.FrameInterval = 2 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()
	defer cancel()

	eventually(t, "registered", func() bool { return c.Sync.State() == Syncing && hub.Pending() == 1 })
	id, _ := c.Sync.ID()

	surface.clicks <- Point{X: 40, Y: 20}
	eventually(t, "first position rendered", func() bool {
		frame := surface.last()
		return len(frame) == 1 && frame[0].ID == id && frame[0].X == 40 && frame[0].Y == 20
	})

	// 第二次点击：渲染位置按步长逼近而不是跳变
	surface.clicks <- Point{X: 140, Y: 20}
	eventually(t, "animation reaches target", func() bool {
		frame := surface.last()
		return len(frame) == 1 && frame[0].X == 140
	})

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("client did not stop")
	}
}

func TestClientRendersWhileLongPollBlocks(t *testing.T) {
	ts, hub := newSyncServer(t, time.Minute, nil)
	hub.Move(protocol.NewMove("p", 0, 0))
	surface := newFakeSurface()
	c := New(testConfig(ts.URL), 10, surface)
	c.TickInterval = time.Millisecond
	c.FrameInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	eventually(t, "rendered first frame", func() bool { return len(surface.last()) == 1 })
	eventually(t, "long-poll held open", func() bool { return hub.Pending() == 1 })

	surface.mu.Lock()
	before := len(surface.frames)
	surface.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	surface.mu.Lock()
	after := len(surface.frames)
	surface.mu.Unlock()
	if after <= before {
		t.Fatalf("frames stopped while long-poll was blocked (%d -> %d)", before, after)
	}
}
