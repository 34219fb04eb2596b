package ipc

import (
	"encoding/json"
	"testing"
)

type recordingDispatcher struct {
	name   string
	detail map[string]any
}

func (r *recordingDispatcher) DispatchEvent(name string, detail json.RawMessage) error {
	r.name = name
	return json.Unmarshal(detail, &r.detail)
}

func TestEventBusPostWithoutDispatcherIsNoop(t *testing.T) {
	bus := NewEventBus()
	if err := bus.Post("tab-updated", map[string]any{"id": "1"}); err != nil {
		t.Fatalf("expected nil error with no dispatcher installed, got %v", err)
	}
}

func TestEventBusPostAddsMarker(t *testing.T) {
	bus := NewEventBus()
	rec := &recordingDispatcher{}
	bus.Install(rec)

	if err := bus.Post("tab-updated", map[string]any{"id": "1"}); err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if rec.name != "tab-updated" {
		t.Errorf("unexpected event name %s", rec.name)
	}
	if rec.detail["id"] != "1" {
		t.Errorf("unexpected detail %v", rec.detail)
	}
	if marker, ok := rec.detail[eventMarker]; !ok || marker != true {
		t.Errorf("expected %s marker set true, got %v", eventMarker, rec.detail[eventMarker])
	}
}
