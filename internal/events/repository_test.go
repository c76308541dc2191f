package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"aurora-dashboard/internal/payload"
)

func TestMemoryRepo_CustomerIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()

	e1, _ := repo.Insert(ctx, Event{CustomerID: 1, EventType: EventTypeToolCall, CreatedAt: now})
	e2, _ := repo.Insert(ctx, Event{CustomerID: 1, EventType: EventTypeToolCall, CreatedAt: now.Add(time.Minute)})
	other, _ := repo.Insert(ctx, Event{CustomerID: 2, EventType: EventTypeToolCall, CreatedAt: now})

	list, err := repo.List(ctx, 1, 10)
	if err != nil || len(list) != 2 {
		t.Fatalf("List = %v, %v", list, err)
	}
	if list[0].ID != e2.ID {
		t.Fatalf("expected newest first")
	}

	if _, err := repo.Get(ctx, 1, other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("customer 1 must not read customer 2's event, got %v", err)
	}
	if err := repo.Delete(ctx, 1, other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("customer 1 must not delete customer 2's event, got %v", err)
	}
	if err := repo.Delete(ctx, 1, e1.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	n, err := repo.DeleteAll(ctx, 1)
	if err != nil || n != 1 {
		t.Fatalf("DeleteAll = %d, %v", n, err)
	}
	if len(repo.Events()) != 1 {
		t.Fatalf("customer 2's event must survive clear")
	}
}

func TestNewView(t *testing.T) {
	e := Event{
		Payload: json.RawMessage(`{"body":"Caller wants to book for Friday","type":"reservation","call_id":"c1"}`),
	}
	v := NewView(e, payload.LocaleEN)
	if v.DisplayType != "reservation" || v.Summary != "Caller wants to book for Friday" {
		t.Fatalf("unexpected view %+v", v)
	}

	e.CallType = "urgent"
	if got := NewView(e, payload.LocaleEN).DisplayType; got != "urgent" {
		t.Fatalf("column call_type must win, got %q", got)
	}

	empty := NewView(Event{}, payload.LocaleFR)
	if empty.Summary != payload.NoSummary(payload.LocaleFR) || empty.DisplayType != "" {
		t.Fatalf("unexpected empty view %+v", empty)
	}
}
