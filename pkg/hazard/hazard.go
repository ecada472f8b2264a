// Package hazard stores user-reported hazards.
package hazard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/voicemap/pkg/geo"
)

var (
	// ErrNotFound is returned when no report has the given ID.
	ErrNotFound = errors.New("hazard: not found")

	// ErrInvalidSeverity is returned for an unknown severity name.
	ErrInvalidSeverity = errors.New("hazard: invalid severity")

	// ErrEmptyDescription is returned for a report without a description.
	ErrEmptyDescription = errors.New("hazard: empty description")
)

// Severity grades a hazard.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity parses "low", "medium" or "high". An empty string is
// medium.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return SeverityMedium, nil
	case SeverityLow:
		return SeverityLow, nil
	case SeverityMedium:
		return SeverityMedium, nil
	case SeverityHigh:
		return SeverityHigh, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
	}
}

// Report is one hazard reported at a location.
type Report struct {
	ID          string       `json:"id"`
	Location    geo.Location `json:"location"`
	Description string       `json:"description"`
	ReportedAt  time.Time    `json:"reported_at"`
	Severity    Severity     `json:"severity"`
}

// NewReport creates a report with a fresh ID.
func NewReport(loc geo.Location, description string, severity Severity, now time.Time) (Report, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return Report{}, ErrEmptyDescription
	}
	if _, err := ParseSeverity(string(severity)); err != nil {
		return Report{}, err
	}
	if severity == "" {
		severity = SeverityMedium
	}
	return Report{
		ID:          uuid.NewString(),
		Location:    loc,
		Description: description,
		ReportedAt:  now,
		Severity:    severity,
	}, nil
}

// Announcement is the sentence spoken when the report is filed.
func (r Report) Announcement() string {
	return fmt.Sprintf("Hazard reported: %s. Severity %s.", r.Description, r.Severity)
}
