// Package api exposes the booking engine over HTTP
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
	"github.com/jakechorley/volunteer-booking/pkg/export"
)

// BookingService is the engine surface the handlers drive
type BookingService interface {
	BookSlot(ctx context.Context, req booking.BookRequest, actor model.Actor) (*booking.BookResult, error)
	Cancel(ctx context.Context, bookingID string, actor model.Actor) (*model.Booking, error)
	CheckIn(ctx context.Context, bookingID string, actor model.Actor) (*model.Booking, error)
	MarkNoShow(ctx context.Context, bookingID string, actor model.Actor) (*model.Booking, error)
	Remove(ctx context.Context, bookingID string, actor model.Actor) error
	CancelSlot(ctx context.Context, locationID, date, slotID string, actor model.Actor) ([]model.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*model.Booking, error)
	Find(ctx context.Context, filter db.BookingFilter) ([]model.Booking, error)
	Occupancy(ctx context.Context, locationID, date, slotID string) (*booking.Occupancy, error)
}

// SlotLister resolves the effective slots of a location
type SlotLister interface {
	GetSlots(ctx context.Context, locationID string) ([]model.TimeSlot, error)
}

// Config holds what the router needs beyond the engine
type Config struct {
	Engine      BookingService
	Slots       SlotLister
	Store       export.CalendarStore
	Timezone    *time.Location
	MetricsPath string
	Logger      *zap.Logger
}

// Server holds the handler dependencies
type Server struct {
	engine   BookingService
	slots    SlotLister
	store    export.CalendarStore
	timezone *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewRouter builds the routes under /api/v1 plus the metrics endpoint
func NewRouter(cfg Config) *mux.Router {
	s := &Server{
		engine:   cfg.Engine,
		slots:    cfg.Slots,
		store:    cfg.Store,
		timezone: cfg.Timezone,
		logger:   cfg.Logger,
		now:      time.Now,
	}
	if s.timezone == nil {
		s.timezone = time.UTC
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s.routes(cfg.MetricsPath)
}

func (s *Server) routes(metricsPath string) *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	if metricsPath != "" {
		r.Handle(metricsPath, promhttp.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/bookings", s.withActor(s.createBooking)).Methods(http.MethodPost)
	api.HandleFunc("/bookings", s.listBookings).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{bookingId}", s.getBooking).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{bookingId}", s.withActor(s.removeBooking)).Methods(http.MethodDelete)
	api.HandleFunc("/bookings/{bookingId}/cancel", s.withActor(s.cancelBooking)).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{bookingId}/check-in", s.withActor(s.checkIn)).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{bookingId}/no-show", s.withActor(s.markNoShow)).Methods(http.MethodPost)

	api.HandleFunc("/locations/{locationId}/slots", s.listSlots).Methods(http.MethodGet)
	api.HandleFunc("/locations/{locationId}/dates/{date}/slots/{slotId}/occupancy", s.occupancy).Methods(http.MethodGet)
	api.HandleFunc("/locations/{locationId}/dates/{date}/slots/{slotId}/cancel", s.withActor(s.cancelSlot)).Methods(http.MethodPost)

	api.HandleFunc("/volunteers/{volunteerId}/service-hours", s.serviceHours).Methods(http.MethodGet)
	api.HandleFunc("/volunteers/{volunteerId}/calendar.ics", s.calendar).Methods(http.MethodGet)

	return r
}
