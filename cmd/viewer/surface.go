package main

import (
	"fmt"
	"time"

	"github.com/nsf/termbox-go"

	"pollarena/client"
	"pollarena/protocol"
)

// 画布尺寸（像素），终端字符格按比例映射
const (
	canvasWidth  = 600
	canvasHeight = 600
)

// closeWait Close 等待事件协程退出的上限
const closeWait = time.Second

// termSurface 终端渲染面：每帧按比例把画布坐标映射到字符格，鼠标左键作为点击
type termSurface struct {
	clicks chan client.Point
	done   chan struct{} // 事件协程退出时关闭
	self   func() (protocol.PlayerID, bool)
	quit   func()

	// termbox 入口，测试中替换
	poll      func() termbox.Event
	size      func() (int, int)
	interrupt func()
	closeTerm func()
}

func newTermSurface(self func() (protocol.PlayerID, bool), quit func()) (*termSurface, error) {
	if err := termbox.Init(); err != nil {
		return nil, fmt.Errorf("termbox init: %w", err)
	}
	termbox.SetInputMode(termbox.InputEsc | termbox.InputMouse)
	s := newSurface(self, quit)
	go s.pollEvents()
	return s, nil
}

func newSurface(self func() (protocol.PlayerID, bool), quit func()) *termSurface {
	return &termSurface{
		clicks:    make(chan client.Point, 8),
		done:      make(chan struct{}),
		self:      self,
		quit:      quit,
		poll:      termbox.PollEvent,
		size:      termbox.Size,
		interrupt: termbox.Interrupt,
		closeTerm: termbox.Close,
	}
}

func (s *termSurface) Clicks() <-chan client.Point { return s.clicks }

// Render 清屏后逐个绘制；最后一行是状态栏
func (s *termSurface) Render(positions []protocol.Position) {
	w, h := s.size()
	if w <= 0 || h <= 1 {
		return
	}
	_ = termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	self, registered := s.self()
	for _, p := range positions {
		col := int(p.X * float64(w) / canvasWidth)
		row := int(p.Y * float64(h-1) / canvasHeight)
		if col < 0 || row < 0 || col >= w || row >= h-1 {
			continue
		}
		ch, fg := 'o', termbox.ColorGreen
		if registered && p.ID == self {
			ch, fg = '@', termbox.ColorYellow|termbox.AttrBold
		}
		termbox.SetCell(col, row, ch, fg, termbox.ColorDefault)
	}
	status := fmt.Sprintf(" players: %d  click to move, q to quit", len(positions))
	if !registered {
		status = " registering..."
	}
	for i, r := range status {
		if i >= w {
			break
		}
		termbox.SetCell(i, h-1, r, termbox.ColorBlack, termbox.ColorWhite)
	}
	_ = termbox.Flush()
}

// pollEvents 事件循环。退出键只通知上层，循环继续，
// 直到 Close 的 Interrupt 把它唤醒
func (s *termSurface) pollEvents() {
	defer close(s.done)
	defer close(s.clicks)
	for s.handle(s.poll()) {
	}
}

// handle 处理一个事件；返回 false 表示事件协程应退出。
// 鼠标左键换算回画布坐标，来不及处理的点击直接丢弃
func (s *termSurface) handle(ev termbox.Event) bool {
	switch ev.Type {
	case termbox.EventInterrupt, termbox.EventError:
		return false
	case termbox.EventKey:
		if ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC || ev.Ch == 'q' {
			s.quit()
		}
	case termbox.EventMouse:
		if ev.Key != termbox.MouseLeft {
			return true
		}
		w, h := s.size()
		if w <= 0 || h <= 1 || ev.MouseY >= h-1 {
			return true
		}
		p := client.Point{
			X: (float64(ev.MouseX) + 0.5) * canvasWidth / float64(w),
			Y: (float64(ev.MouseY) + 0.5) * canvasHeight / float64(h-1),
		}
		select {
		case s.clicks <- p:
		default:
		}
	}
	return true
}

// Close 停止事件协程并恢复终端。
// Interrupt 只有在 PollEvent 挂起时才会返回，事件协程已退出时跳过
func (s *termSurface) Close() {
	select {
	case <-s.done:
	default:
		go s.interrupt()
		select {
		case <-s.done:
		case <-time.After(closeWait):
		}
	}
	s.closeTerm()
}
