package messaging

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBusDelivery(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe("sidebar")

	msg := Message{Type: TypeNotification, Title: "Check Complete", Message: "done"}
	if err := bus.Send(context.Background(), "sidebar", msg); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case got := <-ch:
		if got.Type != TypeNotification || got.Title != "Check Complete" {
			t.Errorf("received %+v, want %+v", got, msg)
		}
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}
}

func TestBusNoSubscriber(t *testing.T) {
	bus := NewBus()
	err := bus.Send(context.Background(), "nobody", Message{Type: TypeProcessQueue})
	if !errors.Is(err, ErrNoSubscriber) {
		t.Errorf("err = %v, want ErrNoSubscriber", err)
	}
}

func TestBusLookupAndReady(t *testing.T) {
	bus := NewBus()

	if exists, _ := bus.Lookup("sidebar"); exists {
		t.Error("Lookup before Subscribe reports existence")
	}

	bus.Subscribe("sidebar")
	exists, ready := bus.Lookup("sidebar")
	if !exists || ready {
		t.Errorf("after Subscribe: exists=%v ready=%v, want true false", exists, ready)
	}

	bus.SetReady("sidebar", true)
	if _, ready := bus.Lookup("sidebar"); !ready {
		t.Error("SetReady not reflected in Lookup")
	}

	bus.Unsubscribe("sidebar")
	if exists, _ := bus.Lookup("sidebar"); exists {
		t.Error("Lookup after Unsubscribe reports existence")
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe("sidebar")
	bus.Unsubscribe("sidebar")

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after Unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestBusSendContextCancel(t *testing.T) {
	bus := NewBus()
	bus.Subscribe("sidebar")

	// Fill the buffer so the next send blocks.
	for range 16 {
		if err := bus.Send(context.Background(), "sidebar", Message{Type: TypeProcessQueue}); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := bus.Send(ctx, "sidebar", Message{Type: TypeProcessQueue}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}
