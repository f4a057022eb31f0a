package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/ymzhao891/medichat/internal/domain"
	"github.com/ymzhao891/medichat/internal/service"
)

// Ensure both analyzers implement the service interface.
var (
	_ service.Analyzer = (*Client)(nil)
	_ service.Analyzer = (*Static)(nil)
)

// Static produces a deterministic draft analysis without calling out to an
// external service. Used when no analysis endpoint is configured, and in
// tests.
type Static struct{}

// NewStatic creates a new static analyzer.
func NewStatic() *Static {
	return &Static{}
}

// Analyze summarizes the transcript into a draft report body.
func (s *Static) Analyze(_ context.Context, transcript []domain.TranscriptEntry) (string, error) {
	var patientTurns, clinicianTurns int
	var firstComplaint string
	for _, entry := range transcript {
		switch entry.Role {
		case domain.SenderRolePatient:
			if firstComplaint == "" {
				firstComplaint = entry.Content
			}
			patientTurns++
		case domain.SenderRoleClinician:
			clinicianTurns++
		}
	}

	var b strings.Builder
	b.WriteString("Draft consultation summary (auto-generated, pending clinician review).\n\n")
	fmt.Fprintf(&b, "Transcript: %d patient turn(s), %d clinician turn(s).\n", patientTurns, clinicianTurns)
	if firstComplaint != "" {
		fmt.Fprintf(&b, "Presenting complaint: %s\n", truncate(firstComplaint, 200))
	}
	b.WriteString("\nNo automated assessment beyond the transcript summary is available in static mode.")
	return b.String(), nil
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
