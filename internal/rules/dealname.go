package rules

import (
	"strings"
	"time"

	"dealflow/internal/crm"
	"dealflow/pkg/logging"
)

// isoDateLayout is the fallback when the configured layout is unusable.
const isoDateLayout = "2006-01-02"

// DealNamer builds names for auto-created deals: the contact's name
// followed by the current date, formatted with a configurable Go time
// layout.
//
// An invalid layout is a non-fatal configuration error: the namer degrades
// to the ISO calendar-date layout instead of failing deal creation.
type DealNamer struct {
	layout string
	now    func() time.Time
}

// NewDealNamer validates the layout and returns a namer. The validation
// result is logged once at construction, not per deal.
func NewDealNamer(layout string) *DealNamer {
	effective := strings.TrimSpace(layout)
	if !layoutCarriesDate(effective) {
		if effective != "" {
			logging.Error("DealNamer", nil,
				"Illegal deal name date layout %q, falling back to ISO date (%s)", layout, isoDateLayout)
		}
		effective = isoDateLayout
	}
	return &DealNamer{layout: effective, now: time.Now}
}

// Layout returns the layout actually in use after validation.
func (n *DealNamer) Layout() string {
	return n.layout
}

// Name builds the deal name for a contact.
func (n *DealNamer) Name(contact crm.Contact) string {
	return contact.Name + " " + n.now().Format(n.layout)
}

// layoutCarriesDate reports whether a layout produces output that changes
// with the date. A layout of literal text only (or empty) formats every day
// identically and therefore cannot serve as a date suffix.
func layoutCarriesDate(layout string) bool {
	if layout == "" {
		return false
	}
	a := time.Date(2006, time.January, 2, 0, 0, 0, 0, time.UTC)
	b := time.Date(2007, time.March, 4, 0, 0, 0, 0, time.UTC)
	return a.Format(layout) != b.Format(layout)
}
