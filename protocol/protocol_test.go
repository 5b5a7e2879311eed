package protocol

import (
	"encoding/json"
	"testing"
)

func TestMoveRequestAcceptsStringAndNumericIDs(t *testing.T) {
	cases := map[string]PlayerID{
		`{"id":"abc","x":1,"y":2}`: "abc",
		`{"id":1,"x":1,"y":2}`:     "1",
		`{"id":2.5,"x":1,"y":2}`:   "2.5",
	}
	for body, expected := range cases {
		var m MoveRequest
		if err := json.Unmarshal([]byte(body), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", body, err)
		}
		if m.ID != expected {
			t.Fatalf("expected id %q for %s, got %q", expected, body, m.ID)
		}
		if !m.Valid() {
			t.Fatalf("expected %s to be valid", body)
		}
	}
}

func TestMoveRequestMissingFieldsIsInvalid(t *testing.T) {
	for _, body := range []string{`{}`, `{"id":"a","x":1}`, `{"id":"a","y":1}`, `{"x":1,"y":1}`, `{"id":null,"x":1,"y":1}`} {
		var m MoveRequest
		if err := json.Unmarshal([]byte(body), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", body, err)
		}
		if m.Valid() {
			t.Fatalf("expected %s to be invalid, got %#v", body, m)
		}
	}
}

func TestMoveRequestZeroCoordinatesArePresent(t *testing.T) {
	var m MoveRequest
	if err := json.Unmarshal([]byte(`{"id":"a","x":0,"y":0}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !m.Valid() {
		t.Fatalf("expected zero coordinates to count as present")
	}
}

func TestPositionEncodesIDAsString(t *testing.T) {
	b, err := json.Marshal(Position{ID: "1", X: 100, Y: 100})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"id":"1","x":100,"y":100}` {
		t.Fatalf("unexpected encoding %s", b)
	}
}
