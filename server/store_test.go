package server

import (
	"bytes"
	"reflect"
	"sort"
	"testing"

	"pollarena/protocol"
)

func sortPositions(ps []protocol.Position) []protocol.Position {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
	return ps
}

func TestStoreStartsEmpty(t *testing.T) {
	s := NewStore(nil)
	if got := s.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %#v", got)
	}
}

func TestStoreKeepsLastMovePerID(t *testing.T) {
	s := NewStore(nil)
	moves := []protocol.MoveRequest{
		protocol.NewMove("a", 1, 1),
		protocol.NewMove("b", 5, 6),
		protocol.NewMove("a", 100, 100),
		protocol.NewMove("c", 0, 0),
		protocol.NewMove("b", 7, 8),
	}
	for _, m := range moves {
		if !s.Move(m) {
			t.Fatalf("expected move %#v to commit", m)
		}
	}
	expected := []protocol.Position{
		{ID: "a", X: 100, Y: 100},
		{ID: "b", X: 7, Y: 8},
		{ID: "c", X: 0, Y: 0},
	}
	if actual := sortPositions(s.Snapshot()); !reflect.DeepEqual(expected, actual) {
		t.Fatalf("unexpected snapshot\nexpected: %#v\nactual: %#v", expected, actual)
	}
}

func TestStoreFirstMoveIsNotAtOrigin(t *testing.T) {
	s := NewStore(nil)
	s.Move(protocol.NewMove("new", 100, 100))
	expected := []protocol.Position{{ID: "new", X: 100, Y: 100}}
	if actual := s.Snapshot(); !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %#v, got %#v", expected, actual)
	}
}

func TestStoreRejectsMissingFields(t *testing.T) {
	s := NewStore(nil)
	x := 1.0
	for _, m := range []protocol.MoveRequest{
		{},
		{ID: "a", X: &x},
		{ID: "a", Y: &x},
		{X: &x, Y: &x},
	} {
		if s.Move(m) {
			t.Fatalf("expected %#v to be rejected", m)
		}
	}
	if s.Len() != 0 {
		t.Fatalf("rejected moves must not create entries, got %d", s.Len())
	}
}

func TestStoreEntriesMatchKeys(t *testing.T) {
	s := NewStore(nil)
	s.Move(protocol.NewMove("a", 1, 2))
	s.Move(protocol.NewMove("b", 3, 4))
	for id, p := range s.positions {
		if p.ID != id {
			t.Fatalf("entry %q holds position for %q", id, p.ID)
		}
	}
}

func TestIssueIDIsHexOf128Bits(t *testing.T) {
	s := NewStore(bytes.NewReader(bytes.Repeat([]byte{0xab}, 16)))
	id, err := s.IssueID()
	if err != nil {
		t.Fatalf("issue id: %v", err)
	}
	if id != "abababababababababababababababab" {
		t.Fatalf("unexpected id %q", id)
	}
	if _, err := s.IssueID(); err == nil {
		t.Fatalf("expected error once the random source is exhausted")
	}
}

func TestIssueIDIsUnique(t *testing.T) {
	s := NewStore(nil)
	seen := make(map[protocol.PlayerID]bool)
	for i := 0; i < 1000; i++ {
		id, err := s.IssueID()
		if err != nil {
			t.Fatalf("issue id: %v", err)
		}
		if len(id) != 32 {
			t.Fatalf("expected 32 hex characters, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q on iteration %d", id, i)
		}
		seen[id] = true
	}
}
