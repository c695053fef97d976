package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/terapia/pkg/models"
)

func TestSendMessageMaintainsSummaries(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	a := seedProfile(t, s, "A", models.RoleClient, time.Now())
	b := seedProfile(t, s, "B", models.RoleSpecialist, time.Now())
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	send := func(from, to, content string, at time.Time) {
		m := &models.Message{ID: uuid.NewString(), SenderID: from, ReceiverID: to, Content: content, CreatedAt: at}
		if err := s.SendMessage(ctx, m); err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
	}
	send(a.ID, b.ID, "oi", base)
	send(a.ID, b.ID, "tudo bem?", base.Add(time.Minute))
	send(b.ID, a.ID, "sim", base.Add(2*time.Minute))

	bs, err := s.ListSummaries(ctx, b.ID)
	if err != nil {
		t.Fatalf("ListSummaries: %v", err)
	}
	if len(bs) != 1 || bs[0].UnreadCount != 2 || bs[0].LastMessage != "sim" || bs[0].CounterpartName != "A" {
		t.Fatalf("unexpected summary for B: %#v", bs)
	}

	as, _ := s.ListSummaries(ctx, a.ID)
	if len(as) != 1 || as[0].UnreadCount != 1 {
		t.Fatalf("unexpected summary for A: %#v", as)
	}

	thread, err := s.ListThread(ctx, a.ID, b.ID)
	if err != nil || len(thread) != 3 || thread[0].Content != "oi" {
		t.Fatalf("unexpected thread: %#v, %v", thread, err)
	}

	ids, err := s.MarkThreadRead(ctx, b.ID, a.ID)
	if err != nil {
		t.Fatalf("MarkThreadRead: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 messages marked read, got %d", len(ids))
	}
	bs, _ = s.ListSummaries(ctx, b.ID)
	if bs[0].UnreadCount != 0 {
		t.Fatalf("expected unread reset, got %d", bs[0].UnreadCount)
	}

	if err := s.ReplaceSummaries(ctx, a.ID, nil); err != nil {
		t.Fatalf("ReplaceSummaries: %v", err)
	}
	as, _ = s.ListSummaries(ctx, a.ID)
	if len(as) != 0 {
		t.Fatalf("expected summaries cleared, got %d", len(as))
	}

	all, err := s.ListMessagesForUser(ctx, a.ID)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 messages for A, got %d, %v", len(all), err)
	}
}

func TestMarkThreadReadKeepsLaterUnread(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	a := seedProfile(t, s, "A", models.RoleClient, time.Now())
	b := seedProfile(t, s, "B", models.RoleSpecialist, time.Now())
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	for i, content := range []string{"oi", "tudo bem?"} {
		m := &models.Message{ID: uuid.NewString(), SenderID: a.ID, ReceiverID: b.ID, Content: content, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.SendMessage(ctx, m); err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
	}
	// one more message counted for B whose row the read does not see
	if err := s.ReplaceSummaries(ctx, b.ID, []models.Conversation{{CounterpartID: a.ID, LastMessage: "ainda ai?", LastMessageAt: base.Add(2 * time.Minute), UnreadCount: 3}}); err != nil {
		t.Fatalf("ReplaceSummaries: %v", err)
	}

	ids, err := s.MarkThreadRead(ctx, b.ID, a.ID)
	if err != nil {
		t.Fatalf("MarkThreadRead: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 messages marked read, got %d", len(ids))
	}
	bs, _ := s.ListSummaries(ctx, b.ID)
	if len(bs) != 1 || bs[0].UnreadCount != 1 {
		t.Fatalf("expected one unread left, got %#v", bs)
	}

	ids, err = s.MarkThreadRead(ctx, b.ID, a.ID)
	if err != nil || len(ids) != 0 {
		t.Fatalf("second read: ids %v err %v", ids, err)
	}
	bs, _ = s.ListSummaries(ctx, b.ID)
	if bs[0].UnreadCount != 1 {
		t.Fatalf("counter changed without marking rows: %d", bs[0].UnreadCount)
	}
}
