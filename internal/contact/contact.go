// Package contact stores storefront messages and backs the admin inbox.
package contact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/listing"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/validate"
)

// Form is the storefront contact form.
type Form struct {
	Name    string `json:"name" validate:"required,personname"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,ngphone"`
	Subject string `json:"subject" validate:"required,max=150"`
	Message string `json:"message" validate:"required,min=10,max=2000"`
}

// Tabs of the admin inbox.
const (
	TabAll    = "all"
	TabUnread = "unread"
	TabRead   = "read"
)

// ListConfig describes the admin messages list. The "tab" filter takes
// TabUnread or TabRead; TabAll disables it.
func ListConfig(pageSize int, fetch func(context.Context) ([]models.ContactMessage, error), now func() time.Time) listing.Config[models.ContactMessage] {
	byCreated := listing.ByTime(func(m models.ContactMessage) time.Time { return m.CreatedAt })
	return listing.Config[models.ContactMessage]{
		Name:     "messages",
		PageSize: pageSize,
		ID:       func(m models.ContactMessage) string { return m.ID },
		Fetch:    fetch,
		SearchFields: func(m models.ContactMessage) []string {
			return []string{m.Name, m.Email, m.Subject, m.Message}
		},
		Filters: map[string]listing.FilterFunc[models.ContactMessage]{
			"tab": func(m models.ContactMessage, v string, _ time.Time) bool {
				switch v {
				case TabUnread:
					return !m.Read
				case TabRead:
					return m.Read
				}
				return true
			},
		},
		Sorts: map[string]func(a, b models.ContactMessage) int{
			"newest": listing.Reverse(byCreated),
			"oldest": byCreated,
		},
		DefaultSort: "newest",
		Now:         now,
	}
}

type Service struct {
	repos *repository.Repos
	now   func() time.Time
}

func NewService(repos *repository.Repos) *Service {
	return &Service{repos: repos, now: time.Now}
}

// Submit validates f and stores it unread.
func (s *Service) Submit(ctx context.Context, f Form) (models.ContactMessage, error) {
	if err := validate.Struct(f); err != nil {
		return models.ContactMessage{}, err
	}
	msg, err := s.repos.Messages.Create(ctx, models.ContactMessage{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.ToLower(strings.TrimSpace(f.Email)),
		Phone:   strings.TrimSpace(f.Phone),
		Subject: strings.TrimSpace(f.Subject),
		Message: strings.TrimSpace(f.Message),
		Read:    false,
	})
	if err != nil {
		return models.ContactMessage{}, fmt.Errorf("save message: %w", err)
	}
	slog.Info("Contact message received", "message_id", msg.ID, "email", msg.Email)
	return msg, nil
}

// Open returns a message for the detail pane and marks it read if it was not.
func (s *Service) Open(ctx context.Context, ctrl *listing.Controller[models.ContactMessage], id string) (models.ContactMessage, error) {
	msg, ok := ctrl.Find(id)
	if !ok {
		var err error
		if msg, err = s.repos.Messages.Get(ctx, id); err != nil {
			return models.ContactMessage{}, err
		}
	}
	if msg.Read {
		return msg, nil
	}
	now := s.now()
	err := ctrl.Mutate(ctx, []string{id}, func(ctx context.Context) error {
		return s.repos.Messages.MarkRead(ctx, id, now)
	}, func(m *models.ContactMessage) {
		m.Read = true
		m.ReadAt = &now
	})
	if err != nil {
		return models.ContactMessage{}, err
	}
	msg.Read = true
	msg.ReadAt = &now
	return msg, nil
}

func (s *Service) Delete(ctx context.Context, ctrl *listing.Controller[models.ContactMessage], id string) error {
	return ctrl.Remove(ctx, []string{id}, func(ctx context.Context) error {
		return s.repos.Messages.Delete(ctx, id)
	})
}

// MarkAllRead flags every unread message in one batch and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, ctrl *listing.Controller[models.ContactMessage]) (int, error) {
	var ids []string
	for _, m := range ctrl.Snapshot() {
		if !m.Read {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	now := s.now()
	err := ctrl.Mutate(ctx, ids, func(ctx context.Context) error {
		return s.repos.Messages.MarkAllRead(ctx, ids, now)
	}, func(m *models.ContactMessage) {
		m.Read = true
		m.ReadAt = &now
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// DeleteSelected removes the selected messages in one batch. The selection is
// cleared once the write succeeds.
func (s *Service) DeleteSelected(ctx context.Context, ctrl *listing.Controller[models.ContactMessage]) (int, error) {
	ids := ctrl.Selected()
	if len(ids) == 0 {
		return 0, nil
	}
	err := ctrl.Remove(ctx, ids, func(ctx context.Context) error {
		return s.repos.Messages.BulkDelete(ctx, ids)
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Unread counts unread messages for the sidebar badge.
func Unread(msgs []models.ContactMessage) int {
	n := 0
	for _, m := range msgs {
		if !m.Read {
			n++
		}
	}
	return n
}
