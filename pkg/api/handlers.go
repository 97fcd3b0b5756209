package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/core/services"
	"github.com/jakechorley/volunteer-booking/pkg/db"
	"github.com/jakechorley/volunteer-booking/pkg/export"
)

// BookingRequest is the body of POST /bookings
type BookingRequest struct {
	VolunteerID string `json:"volunteerId"`
	LocationID  string `json:"locationId"`
	SlotID      string `json:"slotId"`
	Date        string `json:"date"`
	Force       bool   `json:"force"`
}

// WarningResponse asks the caller to confirm a double booking by resending with force
type WarningResponse struct {
	RequiresConfirmation bool            `json:"requiresConfirmation"`
	Message              string          `json:"message"`
	Conflicting          BookingResponse `json:"conflicting"`
}

type BookingResponse struct {
	ID          string  `json:"id"`
	VolunteerID string  `json:"volunteerId"`
	LocationID  string  `json:"locationId"`
	SlotID      string  `json:"slotId"`
	SlotLabel   string  `json:"slotLabel,omitempty"`
	Date        string  `json:"date"`
	StartHour   int     `json:"startHour"`
	EndHour     int     `json:"endHour"`
	Status      string  `json:"status"`
	Forced      bool    `json:"forced,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	CheckedInAt *string `json:"checkedInAt,omitempty"`
}

func toResponse(b model.Booking) BookingResponse {
	resp := BookingResponse{
		ID:          b.ID,
		VolunteerID: b.VolunteerID,
		LocationID:  b.LocationID,
		SlotID:      b.SlotID,
		SlotLabel:   b.SlotLabel,
		Date:        b.Date,
		StartHour:   b.StartHour,
		EndHour:     b.EndHour,
		Status:      string(b.Status),
		Forced:      b.Forced,
		CreatedAt:   b.CreatedAt.UTC().Format(timeLayout),
	}
	if b.CheckedInAt != nil {
		at := b.CheckedInAt.UTC().Format(timeLayout)
		resp.CheckedInAt = &at
	}
	return resp
}

func toResponses(bookings []model.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toResponse(b))
	}
	return out
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// createBooking handles POST /api/v1/bookings
func (s *Server) createBooking(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	var req BookingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}

	result, err := s.engine.BookSlot(r.Context(), booking.BookRequest{
		VolunteerID: req.VolunteerID,
		LocationID:  req.LocationID,
		SlotID:      req.SlotID,
		Date:        req.Date,
		Force:       req.Force,
	}, actor)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}

	if result.Warning != nil {
		respondJSON(w, http.StatusConflict, WarningResponse{
			RequiresConfirmation: true,
			Message:              result.Warning.Message(),
			Conflicting:          toResponse(result.Warning.Conflicting),
		})
		return
	}

	respondJSON(w, http.StatusCreated, toResponse(*result.Booking))
}

// listBookings handles GET /api/v1/bookings
func (s *Server) listBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := db.BookingFilter{
		VolunteerID: q.Get("volunteerId"),
		LocationID:  q.Get("locationId"),
		SlotID:      q.Get("slotId"),
		Date:        q.Get("date"),
		FromDate:    q.Get("from"),
		ToDate:      q.Get("to"),
		ActiveOnly:  q.Get("active") == "true",
	}
	if statuses := q.Get("status"); statuses != "" {
		for _, raw := range strings.Split(statuses, ",") {
			status := model.Status(strings.TrimSpace(raw))
			if !status.IsValid() {
				respondError(w, http.StatusBadRequest, "validation", "unknown status "+string(status))
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	bookings, err := s.engine.Find(r.Context(), filter)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toResponses(bookings))
}

func (s *Server) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := s.engine.GetBooking(r.Context(), mux.Vars(r)["bookingId"])
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toResponse(*b))
}

func (s *Server) cancelBooking(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	s.transition(w, r, actor, s.engine.Cancel)
}

func (s *Server) checkIn(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	s.transition(w, r, actor, s.engine.CheckIn)
}

func (s *Server) markNoShow(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	s.transition(w, r, actor, s.engine.MarkNoShow)
}

type transitionFunc func(ctx context.Context, bookingID string, actor model.Actor) (*model.Booking, error)

func (s *Server) transition(w http.ResponseWriter, r *http.Request, actor model.Actor, fn transitionFunc) {
	b, err := fn(r.Context(), mux.Vars(r)["bookingId"], actor)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toResponse(*b))
}

func (s *Server) removeBooking(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	if err := s.engine.Remove(r.Context(), mux.Vars(r)["bookingId"], actor); err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cancelSlot(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	vars := mux.Vars(r)
	cancelled, err := s.engine.CancelSlot(r.Context(), vars["locationId"], vars["date"], vars["slotId"], actor)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toResponses(cancelled))
}

type SlotResponse struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	StartHour     int    `json:"startHour"`
	EndHour       int    `json:"endHour"`
	MinVolunteers int    `json:"minVolunteers,omitempty"`
	MaxVolunteers int    `json:"maxVolunteers,omitempty"`
}

func (s *Server) listSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.slots.GetSlots(r.Context(), mux.Vars(r)["locationId"])
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	out := make([]SlotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, SlotResponse{
			ID:            slot.ID,
			Label:         slot.Label,
			StartHour:     slot.StartHour,
			EndHour:       slot.EndHour,
			MinVolunteers: slot.MinVolunteers,
			MaxVolunteers: slot.MaxVolunteers,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

type OccupancyResponse struct {
	LocationID string `json:"locationId"`
	Date       string `json:"date"`
	SlotID     string `json:"slotId"`
	Active     int    `json:"active"`
	Limit      int    `json:"limit,omitempty"`
	Unlimited  bool   `json:"unlimited"`
	HasRoom    bool   `json:"hasRoom"`
}

func (s *Server) occupancy(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	o, err := s.engine.Occupancy(r.Context(), vars["locationId"], vars["date"], vars["slotId"])
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, OccupancyResponse{
		LocationID: o.LocationID,
		Date:       o.Date,
		SlotID:     o.SlotID,
		Active:     o.Active,
		Limit:      o.Limit,
		Unlimited:  o.Unlimited,
		HasRoom:    o.HasRoom(),
	})
}

type ServiceHoursResponse struct {
	VolunteerID string         `json:"volunteerId"`
	From        string         `json:"from,omitempty"`
	To          string         `json:"to,omitempty"`
	Hours       int            `json:"hours"`
	CheckedIn   int            `json:"checkedIn"`
	NoShows     int            `json:"noShows"`
	Cancelled   int            `json:"cancelled"`
	Upcoming    int            `json:"upcoming"`
	ByLocation  map[string]int `json:"byLocation"`
}

func (s *Server) serviceHours(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := services.ServiceHours(r.Context(), s.store, s.logger, mux.Vars(r)["volunteerId"], q.Get("from"), q.Get("to"))
	if err != nil {
		s.logger.Error("Failed to compute service hours", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "error", "internal error")
		return
	}
	respondJSON(w, http.StatusOK, ServiceHoursResponse{
		VolunteerID: report.VolunteerID,
		From:        report.From,
		To:          report.To,
		Hours:       report.Hours,
		CheckedIn:   report.CheckedIn,
		NoShows:     report.NoShows,
		Cancelled:   report.Cancelled,
		Upcoming:    report.Upcoming,
		ByLocation:  report.ByLocation,
	})
}

func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	volunteerID := mux.Vars(r)["volunteerId"]

	body, err := export.VolunteerCalendar(r.Context(), s.store, s.logger, volunteerID, q.Get("from"), q.Get("to"), s.timezone, s.now())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "volunteer "+volunteerID+" not found")
			return
		}
		s.logger.Error("Failed to build calendar", zap.String("volunteer_id", volunteerID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "error", "internal error")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
