package audit

import (
	"context"
	"encoding/json"
	"testing"
)

func TestService_AppendRequiresCustomerAndType(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Append(context.Background(), Event{Type: EventTypeSync}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{CustomerID: 1}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_RecordCapturesActor(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	svc.Record(context.Background(),
		Actor{CustomerID: 3, UserID: "u", Role: "owner", IP: "1.2.3.4"},
		EventTypeDismiss,
		Event{EventID: 99},
		map[string]int{"n": 1},
	)

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	e := evs[0]
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned: %+v", e)
	}
	if e.IPAddress != "1.2.3.4" || e.EventID != 99 || e.Type != EventTypeDismiss {
		t.Fatalf("unexpected event: %+v", e)
	}
	var meta map[string]int
	if err := json.Unmarshal(e.Metadata, &meta); err != nil || meta["n"] != 1 {
		t.Fatalf("unexpected metadata %s: %v", e.Metadata, err)
	}
}

func TestService_RecordSwallowsErrors(t *testing.T) {
	var svc *Service
	svc.Record(context.Background(), Actor{CustomerID: 1}, EventTypeSync, Event{}, nil)

	repo := NewMemoryRepo()
	NewService(repo).Record(context.Background(), Actor{}, EventTypeSync, Event{}, nil)
	if len(repo.Events()) != 0 {
		t.Fatalf("invalid event must not be stored")
	}
}
