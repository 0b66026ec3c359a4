package orchestrator

import (
	"testing"

	"github.com/ShayCichocki/bakeoff/internal/logging"
)

func TestEventEmitter_Delivers(t *testing.T) {
	e := NewEventEmitter(4, logging.Nop())
	e.Emit(RoundEvent{Type: EventRoundStarted, RoundID: "r1"})

	ev := <-e.Events()
	if ev.Type != EventRoundStarted || ev.RoundID != "r1" {
		t.Errorf("got %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestEventEmitter_DropsWhenFull(t *testing.T) {
	e := NewEventEmitter(1, logging.Nop())
	e.Emit(RoundEvent{Type: EventRoundStarted})
	e.Emit(RoundEvent{Type: EventRoundDone})

	if got := e.DroppedCount(); got != 1 {
		t.Errorf("DroppedCount = %d, want 1", got)
	}
}

func TestEventEmitter_CloseThenEmit(t *testing.T) {
	e := NewEventEmitter(1, logging.Nop())
	e.Close()
	e.Close()
	e.Emit(RoundEvent{Type: EventRoundDone})

	if _, ok := <-e.Events(); ok {
		t.Error("channel should be closed")
	}
}

func TestEventEmitter_NilSafe(t *testing.T) {
	var e *EventEmitter
	e.Emit(RoundEvent{Type: EventRoundDone})
}
