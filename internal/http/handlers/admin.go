package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ridgelineauto/scheduling-api/internal/bookinglog"
	"github.com/ridgelineauto/scheduling-api/pkg/logging"
)

// CacheClearer drops cached qualification data.
type CacheClearer interface {
	Clear(ctx context.Context) (int64, error)
}

// BookingLister reads recorded bookings.
type BookingLister interface {
	List(ctx context.Context, limit int) ([]bookinglog.Entry, error)
}

// AdminHandler serves the operator endpoints under /admin.
type AdminHandler struct {
	cache    CacheClearer
	bookings BookingLister
	logger   *logging.Logger
}

// NewAdminHandler creates the handler. bookings may be nil when no
// database is configured.
func NewAdminHandler(cache CacheClearer, bookings BookingLister, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{cache: cache, bookings: bookings, logger: logger}
}

// ClearCache handles POST /admin/cache/clear. Operators call it after
// editing the staffing sheet so the next request re-reads it.
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusNotFound, "Cache is not configured")
		return
	}
	removed, err := h.cache.Clear(r.Context())
	if err != nil {
		h.logger.Error("cache clear failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to clear cache")
		return
	}
	h.logger.Info("qualification cache cleared", "removed", removed)
	writeJSON(w, http.StatusOK, map[string]any{"cleared": removed})
}

type bookingListResponse struct {
	Bookings []bookinglog.Entry `json:"bookings"`
	Count    int                `json:"count"`
}

// ListBookings handles GET /admin/bookings?limit=N.
func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	if h.bookings == nil {
		writeError(w, http.StatusNotFound, "Booking log is not configured")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := h.bookings.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("booking list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list bookings")
		return
	}
	writeJSON(w, http.StatusOK, bookingListResponse{Bookings: entries, Count: len(entries)})
}
