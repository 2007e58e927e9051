package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/auth"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/catalog"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/checkout"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/customers"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/media"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/orders"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/validate"
)

const maxJSONBody = 1 << 20

// GenericErrorMessage is shown for anything without a specific message.
const GenericErrorMessage = "Something went wrong. Please try again."

var errBadRequest = errors.New("malformed request")

// errorMessages maps known errors to what the user sees. Checked in order with errors.Is.
var errorMessages = []struct {
	err    error
	status int
	msg    string
}{
	{errBadRequest, http.StatusBadRequest, "Invalid request. Please check the form and try again."},
	{errSessionNotSaved, http.StatusInternalServerError, "We couldn't save your changes. Please try again."},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{auth.ErrEmailInUse, http.StatusConflict, "An account with this email already exists"},
	{auth.ErrInvalidToken, http.StatusBadRequest, "This reset link is invalid or has expired"},
	{auth.ErrWrongPassword, http.StatusBadRequest, "Current password is incorrect"},
	{auth.ErrPasswordTooShort, http.StatusBadRequest, "Password must be at least 8 characters"},
	{auth.ErrPasswordMismatch, http.StatusBadRequest, "Passwords do not match"},
	{docstore.ErrNotFound, http.StatusNotFound, "The requested item could not be found"},
	{catalog.ErrNotPublished, http.StatusNotFound, "This product is no longer available"},
	{docstore.ErrUnavailable, http.StatusServiceUnavailable, "Unable to reach the server. Please check your connection and try again."},
	{docstore.ErrBatchTooLarge, http.StatusBadRequest, "Too many items selected at once"},
	{media.ErrNoFiles, http.StatusBadRequest, "Please select at least one image"},
	{media.ErrTooManyFiles, http.StatusBadRequest, "Maximum 5 images allowed"},
	{media.ErrFileTooLarge, http.StatusBadRequest, "Each image must be under 5MB"},
	{media.ErrUnsupportedFormat, http.StatusBadRequest, "Only JPG and PNG images are supported"},
	{checkout.ErrEmptyCart, http.StatusBadRequest, "Your cart is empty"},
	{checkout.ErrTermsNotAccepted, http.StatusBadRequest, "Please accept the terms and conditions"},
	{checkout.ErrOutOfStock, http.StatusConflict, "Some items in your cart are out of stock"},
	{checkout.ErrProductUnavailable, http.StatusConflict, "Some items in your cart are no longer available"},
	{checkout.ErrInvalidSize, http.StatusBadRequest, "Please choose an available size"},
	{orders.ErrNoOrders, http.StatusNotFound, "No orders to export"},
	{customers.ErrNoCustomers, http.StatusNotFound, "No customers to export"},
	{customers.ErrInvalidRole, http.StatusBadRequest, "Unknown role"},
	{models.ErrInvalidStatus, http.StatusBadRequest, "Unknown order status"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "The request timed out. Please try again."},
}

// userMessage turns err into toast text and an HTTP status.
func userMessage(err error) (string, int) {
	var verrs validate.Errors
	if errors.As(err, &verrs) {
		return verrs.First(), http.StatusUnprocessableEntity
	}
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			return m.msg, m.status
		}
	}
	return GenericErrorMessage, http.StatusInternalServerError
}

type errorResponse struct {
	Error    string            `json:"error"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	msg, status := userMessage(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "error", err)
	} else {
		slog.Debug("Request rejected", "path", r.URL.Path, "error", err)
	}
	resp := errorResponse{Error: msg}
	var verrs validate.Errors
	if errors.As(err, &verrs) {
		resp.Fields = verrs
	}
	writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

// CSRFToken hands the token to the page scripts, which send it back in X-CSRF-Token.
func CSRFToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-CSRF-Token", csrf.Token(r))
	writeJSON(w, http.StatusOK, map[string]string{"token": csrf.Token(r)})
}

// CSRFFailure is the csrf error handler, answering in JSON like every other endpoint.
func CSRFFailure(w http.ResponseWriter, r *http.Request) {
	slog.Warn("CSRF check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))
	writeJSON(w, http.StatusForbidden, errorResponse{Error: "Your session has expired. Please refresh the page and try again."})
}
