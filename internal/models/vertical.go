package models

import "fmt"

// Vertical identifies one of the booking funnels sharing the wizard
type Vertical string

const (
	VerticalRTM       Vertical = "rtm"      // periodic technical inspection
	VerticalAppraisal Vertical = "peritaje" // expert vehicle appraisal
	VerticalPaperwork Vertical = "tramites" // titling and paperwork services
)

// ParseVertical validates a vertical name coming from a request
func ParseVertical(s string) (Vertical, error) {
	switch Vertical(s) {
	case VerticalRTM, VerticalAppraisal, VerticalPaperwork:
		return Vertical(s), nil
	}
	return "", fmt.Errorf("unknown vertical %q", s)
}

// Flow returns the from_flow value the scheduling backend expects
func (v Vertical) Flow() string {
	switch v {
	case VerticalPaperwork:
		return "trámites"
	default:
		return string(v)
	}
}

// DefaultServiceGroup returns the catalog group used when the caller does not pick one
func (v Vertical) DefaultServiceGroup() string {
	switch v {
	case VerticalAppraisal:
		return "Peritaje presencial"
	case VerticalPaperwork:
		return "Trámite"
	default:
		return "RTM"
	}
}

// DefersReservation reports whether the reservation is committed only after payment
func (v Vertical) DefersReservation() bool {
	return v == VerticalPaperwork
}

// UsesRegistry reports whether the vehicle step queries the registry
func (v Vertical) UsesRegistry() bool {
	return v != VerticalPaperwork
}
