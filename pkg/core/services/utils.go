package services

import (
	"strings"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

// filterActiveVolunteers filters volunteers to those with "Active" status (case-insensitive).
// An empty status is treated as active.
func filterActiveVolunteers(volunteers []model.Volunteer) []model.Volunteer {
	active := make([]model.Volunteer, 0)
	for _, vol := range volunteers {
		if vol.Status == "" || strings.EqualFold(vol.Status, "Active") {
			active = append(active, vol)
		}
	}
	return active
}

// getVolunteerIDs extracts volunteer IDs from a list of volunteers (useful for logging)
func getVolunteerIDs(volunteers []model.Volunteer) []string {
	ids := make([]string, len(volunteers))
	for i, vol := range volunteers {
		ids[i] = vol.ID
	}
	return ids
}
