package legacy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

var (
	ErrUnknownVolunteer   = errors.New("unknown volunteer")
	ErrAmbiguousVolunteer = errors.New("ambiguous volunteer reference")
)

// IdentityIndex maps the strings old records used to name a volunteer onto a
// stable volunteer ID. Lookups try the exact ID first, then email, display
// name, full name and aliases, all case-insensitively.
type IdentityIndex struct {
	byID  map[string]bool
	byKey map[string][]string
}

func NewIdentityIndex(volunteers []model.Volunteer) *IdentityIndex {
	idx := &IdentityIndex{
		byID:  make(map[string]bool, len(volunteers)),
		byKey: make(map[string][]string),
	}
	for _, v := range volunteers {
		idx.byID[v.ID] = true
		keys := append([]string{v.Email, v.DisplayName, v.FullName()}, v.Aliases...)
		seen := make(map[string]bool)
		for _, k := range keys {
			k = normalise(k)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			idx.byKey[k] = append(idx.byKey[k], v.ID)
		}
	}
	return idx
}

// Resolve returns the volunteer ID ref refers to
func (idx *IdentityIndex) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrUnknownVolunteer)
	}
	if idx.byID[ref] {
		return ref, nil
	}
	ids := idx.byKey[normalise(ref)]
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %q", ErrUnknownVolunteer, ref)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %q matches %s", ErrAmbiguousVolunteer, ref, strings.Join(ids, ", "))
	}
}

func normalise(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
