package contact

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/listing"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/validate"
)

var now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *repository.Repos, *listing.Controller[models.ContactMessage]) {
	t.Helper()
	mem, err := docstore.NewMemory(docstore.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mem.Close() })
	repos := repository.New(mem)
	svc := NewService(repos)
	svc.now = func() time.Time { return now }
	ctrl := listing.NewController(ListConfig(15, repos.Messages.All, svc.now))
	return svc, repos, ctrl
}

func form(name, subject string) Form {
	return Form{Name: name, Email: "Guest@Example.com", Subject: subject, Message: "Do you ship to Abuja?"}
}

func TestSubmit(t *testing.T) {
	svc, repos, _ := setup(t)
	ctx := context.Background()

	msg, err := svc.Submit(ctx, form("Kemi Adeyemi", "Shipping"))
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID == "" || msg.Read || msg.Email != "guest@example.com" || !msg.CreatedAt.Equal(now) {
		t.Errorf("stored = %+v", msg)
	}

	bad := form("K", "")
	bad.Message = "short"
	_, err = svc.Submit(ctx, bad)
	var verrs validate.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("err = %v", err)
	}
	for _, field := range []string{"name", "subject", "message"} {
		if verrs[field] == "" {
			t.Errorf("no message for %s: %v", field, verrs)
		}
	}
	if all, _ := repos.Messages.All(ctx); len(all) != 1 {
		t.Errorf("invalid form stored, %d messages", len(all))
	}
}

func TestInboxFlow(t *testing.T) {
	svc, repos, ctrl := setup(t)
	ctx := context.Background()
	var ids []string
	for _, subject := range []string{"Sizes", "Returns", "Wholesale"} {
		m, err := svc.Submit(ctx, form("Kemi Adeyemi", subject))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, m.ID)
	}
	if err := ctrl.Load(ctx); err != nil {
		t.Fatal(err)
	}

	opened, err := svc.Open(ctx, ctrl, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if !opened.Read || opened.ReadAt == nil {
		t.Errorf("opened = %+v", opened)
	}
	stored, _ := repos.Messages.Get(ctx, ids[0])
	if !stored.Read || stored.ReadAt == nil || !stored.ReadAt.Equal(now) {
		t.Errorf("stored = %+v", stored)
	}

	unread := ctrl.Apply(listing.Criteria{Filters: map[string]string{"tab": TabUnread}})
	if unread.Total != 2 {
		t.Errorf("unread tab = %d", unread.Total)
	}
	search := ctrl.Apply(listing.Criteria{Query: "whole", Filters: map[string]string{"tab": TabUnread}})
	if search.Total != 1 || search.Items[0].ID != ids[2] {
		t.Errorf("unread + search = %+v", search.Items)
	}
	if read := ctrl.Apply(listing.Criteria{Filters: map[string]string{"tab": TabRead}}); read.Total != 1 {
		t.Errorf("read tab = %d", read.Total)
	}

	n, err := svc.MarkAllRead(ctx, ctrl)
	if err != nil || n != 2 {
		t.Fatalf("mark all = %d, %v", n, err)
	}
	if Unread(ctrl.Snapshot()) != 0 {
		t.Error("snapshot still has unread messages")
	}
	if again, _ := svc.MarkAllRead(ctx, ctrl); again != 0 {
		t.Errorf("second mark all = %d", again)
	}

	ctrl.Select(ids[1], ids[2])
	if n, err := svc.DeleteSelected(ctx, ctrl); err != nil || n != 2 {
		t.Fatalf("delete selected = %d, %v", n, err)
	}
	if len(ctrl.Selected()) != 0 || len(ctrl.Snapshot()) != 1 {
		t.Errorf("after delete: %d selected, %d left", len(ctrl.Selected()), len(ctrl.Snapshot()))
	}
	if err := svc.Delete(ctx, ctrl, ids[0]); err != nil {
		t.Fatal(err)
	}
	if all, _ := repos.Messages.All(ctx); len(all) != 0 {
		t.Errorf("store still has %d messages", len(all))
	}
}

func TestOpenLeavesUnreadTab(t *testing.T) {
	svc, _, ctrl := setup(t)
	ctx := context.Background()
	first, _ := svc.Submit(ctx, form("Kemi Adeyemi", "Sizes"))
	second, _ := svc.Submit(ctx, form("Tunde Bello", "Returns"))
	if err := ctrl.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if unread := ctrl.Apply(listing.Criteria{Filters: map[string]string{"tab": TabUnread}}); unread.Total != 2 {
		t.Fatalf("unread tab = %d", unread.Total)
	}

	if _, err := svc.Open(ctx, ctrl, first.ID); err != nil {
		t.Fatal(err)
	}
	cur := ctrl.Current()
	if cur.Total != 1 || cur.Items[0].ID != second.ID {
		t.Errorf("unread tab after open = %+v", cur.Items)
	}
}

func TestFailedWriteLeavesInboxUntouched(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	msgs := []models.ContactMessage{{ID: "ghost-1"}, {ID: "ghost-2"}}
	ctrl := listing.NewController(ListConfig(15, func(context.Context) ([]models.ContactMessage, error) {
		return msgs, nil
	}, svc.now))
	if err := ctrl.Load(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.MarkAllRead(ctx, ctrl); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if Unread(ctrl.Snapshot()) != 2 {
		t.Error("batch failure patched the snapshot")
	}
	ctrl.Select("ghost-1")
	// Deleting a missing document is not an error, so the batch succeeds.
	if n, err := svc.DeleteSelected(ctx, ctrl); err != nil || n != 1 {
		t.Errorf("delete = %d, %v", n, err)
	}
	if got := fmt.Sprint(len(ctrl.Snapshot())); got != "1" {
		t.Errorf("snapshot size = %s", got)
	}
}
