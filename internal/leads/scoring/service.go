package scoring

import (
	"context"
	"strings"
	"time"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

const (
	// scoreVersion tracks the scoring model for debugging and analysis.
	// Bump this when changing the factor table.
	scoreVersion = "2026-v3"

	// Every lead starts here; factors add or subtract.
	baseScore = 50

	// reasonFactorLimit caps how many factor labels end up in the reason.
	reasonFactorLimit = 4

	baselineReason = "baseline"
)

// Factor is one contributing adjustment with its human-readable label.
type Factor struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Points int    `json:"points"`
}

// Input is the activity snapshot a score is computed from.
type Input struct {
	Lead      repository.Lead
	FollowUps []repository.FollowUp
	Notes     []repository.LeadNote
	CallLogs  []repository.CallLog
}

// Result holds scoring output and factor details.
type Result struct {
	Score   int
	Tier    string
	Reason  string
	Factors []Factor
	Version string
	// ScoredAt is the evaluation instant the recency term was computed against.
	ScoredAt time.Time
}

// Compute scores a lead. It performs no I/O and is deterministic for a fixed now.
func Compute(in Input, now time.Time) Result {
	factors := make([]Factor, 0, 12)
	add := func(key, label string, points int) {
		if points == 0 {
			return
		}
		factors = append(factors, Factor{Key: key, Label: label, Points: points})
	}

	lead := in.Lead

	// Evaluation order determines which labels make the reason.
	add(scoreInteractions(in.CallLogs, in.Notes))
	add(scoreBudget(lead.Budget))
	add(scoreInterest(lead.InterestLevel))
	add(scoreRecency(lead, now))
	if lead.HasEmail() {
		add("email", "has email", 5)
	}
	if strings.TrimSpace(lead.City) != "" {
		add("city", "has city", 3)
	}
	add(scoreSource(lead.Source))
	add(scoreStage(lead.PipelineStage))
	add(scoreStatus(lead.Status))
	add(scoreCompletedFollowUps(in.FollowUps))

	total := baseScore
	for _, f := range factors {
		total += f.Points
	}
	score := clampScore(total)

	return Result{
		Score:    score,
		Tier:     domain.TemperatureFor(score),
		Reason:   buildReason(factors),
		Factors:  factors,
		Version:  scoreVersion,
		ScoredAt: now,
	}
}

func buildReason(factors []Factor) string {
	if len(factors) == 0 {
		return baselineReason
	}
	n := min(len(factors), reasonFactorLimit)
	labels := make([]string, 0, n)
	for _, f := range factors[:n] {
		labels = append(labels, f.Label)
	}
	return strings.Join(labels, ", ")
}

// IsWhatsAppNote reports whether a note counts as a WhatsApp interaction.
func IsWhatsAppNote(note repository.LeadNote) bool {
	if note.Type == domain.NoteTypeWhatsApp {
		return true
	}
	return strings.Contains(strings.ToLower(note.Body), "whatsapp")
}

// scoreInteractions counts calls plus WhatsApp conversations.
func scoreInteractions(calls []repository.CallLog, notes []repository.LeadNote) (string, string, int) {
	count := len(calls)
	for _, note := range notes {
		if IsWhatsAppNote(note) {
			count++
		}
	}
	switch {
	case count >= 5:
		return "interactions", "high engagement", 20
	case count >= 2:
		return "interactions", "some engagement", 10
	case count > 0:
		return "interactions", "first contact made", 5
	}
	return "interactions", "", 0
}

func scoreBudget(budget *float64) (string, string, int) {
	if budget == nil {
		return "budget", "", 0
	}
	switch b := *budget; {
	case b >= 50000:
		return "budget", "high budget", 25
	case b >= 20000:
		return "budget", "good budget", 15
	case b >= 5000:
		return "budget", "moderate budget", 10
	}
	return "budget", "", 0
}

func scoreInterest(level string) (string, string, int) {
	switch level {
	case domain.InterestHigh:
		return "interest", "high interest", 20
	case domain.InterestMedium:
		return "interest", "medium interest", 10
	case domain.InterestLow:
		return "interest", "low interest", -10
	}
	return "interest", "", 0
}

// scoreRecency measures days since the later of last activity and creation.
func scoreRecency(lead repository.Lead, now time.Time) (string, string, int) {
	ref := lead.CreatedAt
	if lead.LastActivityAt.After(ref) {
		ref = lead.LastActivityAt
	}
	days := now.Sub(ref).Hours() / 24
	switch {
	case days <= 1:
		return "recency", "active today", 20
	case days <= 3:
		return "recency", "active in last 3 days", 15
	case days <= 7:
		return "recency", "active this week", 10
	case days > 30:
		return "recency", "inactive over 30 days", -15
	}
	return "recency", "", 0
}

func scoreSource(source string) (string, string, int) {
	switch source {
	case domain.SourceReferral:
		return "source", "referral source", 15
	case domain.SourceGoogle:
		return "source", "google source", 10
	case domain.SourceWebsite:
		return "source", "website source", 8
	}
	return "source", "", 0
}

func scoreStage(stage string) (string, string, int) {
	switch stage {
	case domain.PipelineStageNegotiation:
		return "stage", "in negotiation", 25
	case domain.PipelineStageProposalSent:
		return "stage", "proposal sent", 20
	case domain.PipelineStageQualified:
		return "stage", "qualified", 15
	case domain.PipelineStageContacted:
		return "stage", "contacted", 5
	}
	return "stage", "", 0
}

func scoreStatus(status string) (string, string, int) {
	switch status {
	case domain.LeadStatusInterested:
		return "status", "interested", 15
	case domain.LeadStatusConverted:
		return "status", "converted", 30
	case domain.LeadStatusNotInterested:
		return "status", "not interested", -30
	}
	return "status", "", 0
}

func scoreCompletedFollowUps(followUps []repository.FollowUp) (string, string, int) {
	done := 0
	for _, f := range followUps {
		if f.Completed {
			done++
		}
	}
	switch {
	case done >= 3:
		return "follow_ups", "3+ follow-ups completed", 15
	case done > 0:
		return "follow_ups", "follow-up completed", 8
	}
	return "follow_ups", "", 0
}

func clampScore(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

// ActivityReader is the slice of the lead store the scorer reads from.
type ActivityReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	ListFollowUps(ctx context.Context, leadID uuid.UUID) ([]repository.FollowUp, error)
	ListNotes(ctx context.Context, leadID uuid.UUID) ([]repository.LeadNote, error)
	ListCallLogs(ctx context.Context, leadID uuid.UUID) ([]repository.CallLog, error)
}

// Service loads a lead's activity snapshot and computes its score.
type Service struct {
	repo ActivityReader
	now  func() time.Time
}

// New creates a new scoring service.
func New(repo ActivityReader) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock replaces the evaluation clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Recalculate computes the score for a lead from its current activity.
// Store errors are returned unchanged.
func (s *Service) Recalculate(ctx context.Context, leadID uuid.UUID) (repository.Lead, Result, error) {
	lead, err := s.repo.GetLead(ctx, leadID)
	if err != nil {
		return repository.Lead{}, Result{}, err
	}
	followUps, err := s.repo.ListFollowUps(ctx, leadID)
	if err != nil {
		return repository.Lead{}, Result{}, err
	}
	notes, err := s.repo.ListNotes(ctx, leadID)
	if err != nil {
		return repository.Lead{}, Result{}, err
	}
	calls, err := s.repo.ListCallLogs(ctx, leadID)
	if err != nil {
		return repository.Lead{}, Result{}, err
	}

	result := Compute(Input{Lead: lead, FollowUps: followUps, Notes: notes, CallLogs: calls}, s.now().UTC())
	return lead, result, nil
}
