package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestDispatchFoldsErrorsIntoResponse(t *testing.T) {
	d := NewDispatcher()
	d.Register("explode", func(ctx context.Context, data json.RawMessage) (any, error) {
		return nil, errors.New("please sign in to Kobo first")
	})

	resp, ok := d.Dispatch(context.Background(), Request{ID: "r1", Action: "explode"})
	if !ok {
		t.Fatalf("expected recognized action")
	}
	if resp.Success {
		t.Fatalf("expected failure response")
	}
	if resp.Error != "please sign in to Kobo first" {
		t.Fatalf("expected error message, got %q", resp.Error)
	}
	if resp.ID != "r1" {
		t.Fatalf("expected correlation id preserved")
	}
}

func TestDispatchEncodesResult(t *testing.T) {
	d := NewDispatcher()
	d.Register("stats", func(ctx context.Context, data json.RawMessage) (any, error) {
		return map[string]int{"savedToday": 0, "totalBoards": 0}, nil
	})

	resp, ok := d.Dispatch(context.Background(), Request{Action: "stats"})
	if !ok || !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}

	var decoded map[string]int
	if err := json.Unmarshal(resp.Data, &decoded); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if decoded["totalBoards"] != 0 {
		t.Fatalf("unexpected payload %v", decoded)
	}
}

func TestDispatchUnrecognizedAction(t *testing.T) {
	d := NewDispatcher()
	if _, ok := d.Dispatch(context.Background(), Request{Action: "nope"}); ok {
		t.Fatalf("expected unrecognized action to report ok=false")
	}
}

func TestDispatchPassesPayloadThrough(t *testing.T) {
	d := NewDispatcher()
	var got string
	d.Register("echo", func(ctx context.Context, data json.RawMessage) (any, error) {
		var payload struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		got = payload.Value
		return nil, nil
	})

	resp, ok := d.Dispatch(context.Background(), Request{Action: "echo", Data: json.RawMessage(`{"value":"hi"}`)})
	if !ok || !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if got != "hi" {
		t.Fatalf("expected payload delivered, got %q", got)
	}
	if len(resp.Data) != 0 {
		t.Fatalf("expected empty data for nil result")
	}
}
