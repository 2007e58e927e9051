package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/auth"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/checkout"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/notify"
)

// AccountHandler serves customer registration, sign-in and password management.
type AccountHandler struct {
	SessionStore sessions.Store
	Auth         *auth.Service
	Checkout     *checkout.Service
	Notifier     notify.Notifier
	// LoginLimiter throttles sign-in and reset requests. Optional.
	LoginLimiter *RateLimiter
}

func (h *AccountHandler) Register(mux *http.ServeMux) {
	limit := func(fn http.HandlerFunc) http.HandlerFunc {
		if h.LoginLimiter == nil {
			return fn
		}
		return h.LoginLimiter.Middleware(fn)
	}
	mux.HandleFunc("POST /api/account/register", limit(h.SignUp))
	mux.HandleFunc("POST /api/account/login", limit(h.Login))
	mux.HandleFunc("POST /api/account/logout", h.Logout)
	mux.HandleFunc("GET /api/account/me", h.Me)
	mux.HandleFunc("GET /api/account/orders", h.Orders)
	mux.HandleFunc("POST /api/account/password", h.ChangePassword)
	mux.HandleFunc("POST /api/account/password-reset", limit(h.RequestReset))
	mux.HandleFunc("POST /api/account/password-reset/confirm", h.ConfirmReset)
}

func (h *AccountHandler) session(r *http.Request) *sessions.Session {
	s, _ := h.SessionStore.Get(r, ShopSession)
	return s
}

func (h *AccountHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s := h.session(r)
	s.Values[keyUserID] = u.ID
	h.Notifier.Notify(withSession(r.Context(), s), "Welcome to Auranova, "+u.FirstName+"!", notify.LevelSuccess)
	saveSession(w, r, s)
	writeJSON(w, http.StatusCreated, map[string]any{"user": u, "redirect": "/account"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s := h.session(r)
	s.Values[keyUserID] = u.ID
	if err := s.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
		writeError(w, r, err)
		return
	}
	slog.Info("Customer signed in", "user_id", u.ID)
	writeJSON(w, http.StatusOK, map[string]any{"user": u, "redirect": "/account"})
}

func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	delete(s.Values, keyUserID)
	h.Notifier.Notify(withSession(r.Context(), s), "Logged out successfully!", notify.LevelSuccess)
	saveSession(w, r, s)
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/"})
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	uid := sessionUser(s)
	cart, wl, err := h.Checkout.Basket(r.Context(), basketID(s))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := map[string]any{"cartCount": cart.Count(), "wishlistCount": len(wl.IDs)}
	if uid != "" {
		u, err := h.Auth.User(r.Context(), uid)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp["user"] = u
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AccountHandler) Orders(w http.ResponseWriter, r *http.Request) {
	uid := sessionUser(h.session(r))
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Please sign in to view your orders", Redirect: "/login"})
		return
	}
	list, err := h.Checkout.History(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

type changePasswordRequest struct {
	Current string `json:"currentPassword"`
	New     string `json:"newPassword"`
	Confirm string `json:"confirmPassword"`
}

func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	uid := sessionUser(h.session(r))
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Please sign in first", Redirect: "/login"})
		return
	}
	changePassword(w, r, h.Auth, uid)
}

// changePassword is shared by the account and admin settings pages.
func changePassword(w http.ResponseWriter, r *http.Request, svc *auth.Service, uid string) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := svc.ChangePassword(r.Context(), uid, req.Current, req.New, req.Confirm); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

type resetRequest struct {
	Email string `json:"email"`
}

// RequestReset always answers the same way so it cannot be used to discover accounts.
func (h *AccountHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		slog.Error("Password reset request failed", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "If an account exists for that email, a reset link is on its way."})
}

type confirmResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *AccountHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset. You can now sign in.", "redirect": "/login"})
}
