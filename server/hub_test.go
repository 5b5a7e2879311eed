package server

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"pollarena/protocol"
)

func newTestHub(timeout time.Duration) *Hub {
	cfg := DefaultConfig()
	cfg.WaitTimeout = timeout
	return NewHub(cfg)
}

func TestHubWaitBeforeMoveSeesMove(t *testing.T) {
	h := newTestHub(time.Minute)
	o := h.Wait()
	if !h.Move(protocol.NewMove("a", 100, 100)) {
		t.Fatalf("expected move to commit")
	}
	u := receive(t, o, time.Second)
	expected := []protocol.Position{{ID: "a", X: 100, Y: 100}}
	if u.TimedOut || !reflect.DeepEqual(expected, u.Positions) {
		t.Fatalf("expected %#v, got %#v", expected, u)
	}
	if u.Version != 1 {
		t.Fatalf("expected version 1, got %d", u.Version)
	}
}

func TestHubWaitAfterReleaseDoesNotReplay(t *testing.T) {
	h := newTestHub(50 * time.Millisecond)
	h.Move(protocol.NewMove("a", 1, 1))
	o := h.Wait()
	u := receive(t, o, time.Second)
	if !u.TimedOut {
		t.Fatalf("expected timeout instead of stale snapshot, got %#v", u)
	}
}

func TestHubRejectedMoveDoesNotRelease(t *testing.T) {
	h := newTestHub(time.Minute)
	o := h.Wait()
	if h.Move(protocol.MoveRequest{ID: "a"}) {
		t.Fatalf("expected move without coordinates to be rejected")
	}
	expectPending(t, o)
	if h.Version() != 0 {
		t.Fatalf("rejected move must not bump version, got %d", h.Version())
	}
	if h.Pending() != 1 {
		t.Fatalf("expected observer still pending, got %d", h.Pending())
	}
}

func TestHubConcurrentWaitersShareSnapshot(t *testing.T) {
	h := newTestHub(time.Minute)
	h.Move(protocol.NewMove("b", 3, 4))
	observers := make([]*Observer, 25)
	for i := range observers {
		observers[i] = h.Wait()
	}
	h.Move(protocol.NewMove("a", 1, 2))

	first := sortPositions(receive(t, observers[0], time.Second).Positions)
	for i, o := range observers[1:] {
		got := sortPositions(receive(t, o, time.Second).Positions)
		if !reflect.DeepEqual(first, got) {
			t.Fatalf("observer %d saw %#v, expected %#v", i+1, got, first)
		}
	}
}

func TestHubWaitSince(t *testing.T) {
	h := newTestHub(time.Minute)
	h.Move(protocol.NewMove("a", 1, 1))
	h.Move(protocol.NewMove("a", 2, 2))

	// since 落后：立即返回当前快照
	u := receive(t, h.WaitSince(0), 10*time.Millisecond)
	if u.Version != 2 || !reflect.DeepEqual(u.Positions, []protocol.Position{{ID: "a", X: 2, Y: 2}}) {
		t.Fatalf("unexpected immediate update %#v", u)
	}
	if h.Pending() != 0 {
		t.Fatalf("immediate reply must not occupy the pending set")
	}

	// since 追平：等待下一次变更
	o := h.WaitSince(2)
	expectPending(t, o)
	h.Move(protocol.NewMove("a", 3, 3))
	if u := receive(t, o, time.Second); u.Version != 3 {
		t.Fatalf("expected version 3, got %#v", u)
	}
}

// 每次释放的快照都必须恰好来自某一次移动后的状态：版本 v 的快照里 a 的 x 等于 v
func TestHubReleasesAreNotInterleaved(t *testing.T) {
	h := newTestHub(time.Minute)
	const moves = 200
	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 1)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var since uint64
			for {
				select {
				case <-stop:
					return
				default:
				}
				u := <-h.WaitSince(since).C
				if u.TimedOut {
					continue
				}
				if len(u.Positions) != 1 || u.Positions[0].X != float64(u.Version) {
					select {
					case errs <- "inconsistent snapshot":
					default:
					}
					return
				}
				since = u.Version
				if since >= moves {
					return
				}
			}
		}()
	}
	var mu sync.Mutex
	var next float64
	var movers sync.WaitGroup
	for i := 0; i < moves; i++ {
		movers.Add(1)
		go func() {
			defer movers.Done()
			mu.Lock()
			next++
			h.Move(protocol.NewMove("a", next, next))
			mu.Unlock()
		}()
	}
	movers.Wait()
	close(stop)
	wg.Wait()
	select {
	case e := <-errs:
		t.Fatalf("%s", e)
	default:
	}
}

func TestHubCountsEveryObserverOnce(t *testing.T) {
	h := newTestHub(30 * time.Millisecond)
	receive(t, h.Wait(), time.Second)
	receive(t, h.Wait(), time.Second)
	released := h.Wait()
	h.Move(protocol.NewMove("a", 1, 1))
	receive(t, released, time.Second)
	snap := h.Metrics.Snapshot()
	if snap["observers_timed_out"].(int64) != 2 || snap["observers_released"].(int64) != 1 {
		t.Fatalf("unexpected metrics %#v", snap)
	}
}

func TestHubIssueIDOutsideCriticalSection(t *testing.T) {
	h := newTestHub(time.Minute)
	h.mu.Lock()
	defer h.mu.Unlock()
	done := make(chan error, 1)
	go func() {
		_, err := h.IssueID()
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("issue id: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("IssueID waited on the move/wait lock")
	}
}
