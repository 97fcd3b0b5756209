package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/metrics"
)

const (
	headerActorRole   = "X-Actor-Role"
	headerVolunteerID = "X-Volunteer-ID"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware records request counts and latency by route template
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), time.Since(start).Seconds())
	})
}

type actorHandler func(w http.ResponseWriter, r *http.Request, actor model.Actor)

// withActor resolves the caller from the actor headers
func (s *Server) withActor(next actorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
			return
		}
		next(w, r, actor)
	}
}

func actorFromRequest(r *http.Request) (model.Actor, error) {
	role := strings.ToLower(strings.TrimSpace(r.Header.Get(headerActorRole)))
	volunteerID := strings.TrimSpace(r.Header.Get(headerVolunteerID))

	switch model.ActorRole(role) {
	case model.ActorAdmin:
		return model.Admin(), nil
	case model.ActorVolunteer:
		if volunteerID == "" {
			return model.Actor{}, fmt.Errorf("%s is required for volunteer actors", headerVolunteerID)
		}
		return model.VolunteerActor(volunteerID), nil
	case "":
		return model.Actor{}, fmt.Errorf("%s header is required", headerActorRole)
	default:
		return model.Actor{}, fmt.Errorf("unknown actor role %q", role)
	}
}
