package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrValidation wraps check-in payload validation failures.
var ErrValidation = errors.New("validation failed")

// WellnessRepository captures wellness persistence operations.
type WellnessRepository interface {
	Upsert(ctx context.Context, record WellnessRecord) (*WellnessRecord, error)
	ListByAthlete(ctx context.Context, tenantID, athleteID string, cursor *Cursor, limit int) ([]WellnessRecord, *Cursor, error)
}

// WellnessService handles athlete check-ins and history reads.
type WellnessService struct {
	repo WellnessRepository
}

// NewWellnessService constructs a WellnessService.
func NewWellnessService(repo WellnessRepository) *WellnessService {
	return &WellnessService{repo: repo}
}

// CheckInInput is the payload from the API layer. Nil metric values mean
// "not reported" and are stored as NULL.
type CheckInInput struct {
	TenantID      string
	AthleteID     string
	Date          time.Time
	SleepHours    *float64
	VitalityLevel *int
	PainLevel     *int
}

func (in CheckInInput) validate() error {
	if in.AthleteID == "" {
		return fmt.Errorf("%w: athlete_id is required", ErrValidation)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if in.SleepHours != nil && *in.SleepHours < 0 {
		return fmt.Errorf("%w: sleep_hours must be >= 0", ErrValidation)
	}
	if in.VitalityLevel != nil && (*in.VitalityLevel < 0 || *in.VitalityLevel > 10) {
		return fmt.Errorf("%w: vitality_level must be between 0 and 10", ErrValidation)
	}
	if in.PainLevel != nil && *in.PainLevel < 0 {
		return fmt.Errorf("%w: pain_level must be >= 0", ErrValidation)
	}
	return nil
}

// CheckIn upserts the record for (athlete, date). A second check-in on the
// same day replaces the first, keeping at most one record per calendar date.
func (s *WellnessService) CheckIn(ctx context.Context, in CheckInInput) (*WellnessRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := WellnessRecord{
		ID:            uuid.NewString(),
		TenantID:      in.TenantID,
		AthleteID:     in.AthleteID,
		Date:          in.Date.UTC().Truncate(24 * time.Hour),
		SleepHours:    in.SleepHours,
		VitalityLevel: in.VitalityLevel,
		PainLevel:     in.PainLevel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	return s.repo.Upsert(ctx, record)
}

// History lists an athlete's wellness records with cursor pagination,
// newest first.
func (s *WellnessService) History(ctx context.Context, tenantID, athleteID string, cursor *Cursor, limit int) ([]WellnessRecord, *Cursor, error) {
	return s.repo.ListByAthlete(ctx, tenantID, athleteID, cursor, limit)
}
