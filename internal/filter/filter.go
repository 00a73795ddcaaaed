// Package filter selects establishment subsets for the dashboard. Every
// dimension of a Spec is optional; an absent dimension means no restriction,
// matching how the sidebar controls behave when nothing is selected. The
// selected dimensions combine by AND.
package filter

import (
	"github.com/rotisserie/eris"

	"github.com/dadoslab/rfbdash/internal/model"
)

// ErrInvalidSpec marks a malformed filter specification. Handlers map it
// to a 400 rather than a server error.
var ErrInvalidSpec = eris.New("invalid filter spec")

// Spec is one filter selection from the sidebar. Nil or empty slices leave
// that dimension unrestricted. YearMin/YearMax bound the activity-start
// year inclusively; 0 leaves that end open.
type Spec struct {
	Statuses       []model.RegistrationStatus `json:"statuses,omitempty"`
	Types          []model.EstablishmentType  `json:"types,omitempty"`
	Municipalities []string                   `json:"municipalities,omitempty"`
	YearMin        int                        `json:"year_min,omitempty"`
	YearMax        int                        `json:"year_max,omitempty"`
}

// IsZero reports whether the spec restricts nothing.
func (s Spec) IsZero() bool {
	return len(s.Statuses) == 0 && len(s.Types) == 0 && len(s.Municipalities) == 0 &&
		s.YearMin == 0 && s.YearMax == 0
}

// Validate rejects specs a well-formed UI cannot produce.
func (s Spec) Validate() error {
	if s.YearMin < 0 || s.YearMax < 0 {
		return eris.Wrapf(ErrInvalidSpec, "filter: negative year bound %d..%d", s.YearMin, s.YearMax)
	}
	if s.YearMin > 0 && s.YearMax > 0 && s.YearMin > s.YearMax {
		return eris.Wrapf(ErrInvalidSpec, "filter: year range %d > %d", s.YearMin, s.YearMax)
	}
	for _, st := range s.Statuses {
		if !st.Known() {
			return eris.Wrapf(ErrInvalidSpec, "filter: unknown status code %q", string(st))
		}
	}
	for _, ty := range s.Types {
		if !ty.Known() {
			return eris.Wrapf(ErrInvalidSpec, "filter: unknown type code %q", string(ty))
		}
	}
	return nil
}

// Apply returns the rows satisfying every restricted dimension. The input
// is never mutated; the result is a fresh slice (possibly empty, never an
// error for an empty match).
func Apply(rows []model.Establishment, spec Spec) ([]model.Establishment, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.IsZero() {
		out := make([]model.Establishment, len(rows))
		copy(out, rows)
		return out, nil
	}

	statuses := toSet(spec.Statuses)
	types := toSet(spec.Types)
	municipalities := toSet(spec.Municipalities)

	out := make([]model.Establishment, 0, len(rows))
	for i := range rows {
		e := &rows[i]
		if len(statuses) > 0 && !statuses[e.Status] {
			continue
		}
		if len(types) > 0 && !types[e.Type] {
			continue
		}
		if len(municipalities) > 0 && !municipalities[e.Municipality] {
			continue
		}
		if spec.YearMin > 0 || spec.YearMax > 0 {
			year := e.OpeningYear()
			// Rows without a valid opening date cannot satisfy a year range.
			if year == 0 {
				continue
			}
			if spec.YearMin > 0 && year < spec.YearMin {
				continue
			}
			if spec.YearMax > 0 && year > spec.YearMax {
				continue
			}
		}
		out = append(out, *e)
	}
	return out, nil
}

func toSet[K comparable](values []K) map[K]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[K]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
