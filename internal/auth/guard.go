package auth

import (
	"context"
	"fmt"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
)

// State is where a request stands with respect to the admin area.
type State int

const (
	Unauthenticated State = iota
	AuthenticatedNonAdmin
	AuthenticatedAdmin
)

func (s State) String() string {
	switch s {
	case AuthenticatedNonAdmin:
		return "authenticated-non-admin"
	case AuthenticatedAdmin:
		return "authenticated-admin"
	}
	return "unauthenticated"
}

// Guard decides whether a signed-in user may enter the admin area.
type Guard struct {
	ready *docstore.Ready
	users *repository.Users
}

func NewGuard(ready *docstore.Ready, users *repository.Users) *Guard {
	return &Guard{ready: ready, users: users}
}

// Evaluate waits for the store, then reads uid's role. An empty uid is
// Unauthenticated; a missing profile counts as a customer.
func (g *Guard) Evaluate(ctx context.Context, uid string) (State, models.Role, error) {
	if _, err := g.ready.Wait(ctx); err != nil {
		return Unauthenticated, "", fmt.Errorf("store not ready: %w", err)
	}
	if uid == "" {
		return Unauthenticated, "", nil
	}
	role, err := g.users.Role(ctx, uid)
	if err != nil {
		return Unauthenticated, "", fmt.Errorf("fetch role: %w", err)
	}
	if models.IsAdminRole(role) {
		return AuthenticatedAdmin, role, nil
	}
	return AuthenticatedNonAdmin, role, nil
}
