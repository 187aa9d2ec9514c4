package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captureRepo struct {
	record *WellnessRecord
}

func (r *captureRepo) Upsert(_ context.Context, record WellnessRecord) (*WellnessRecord, error) {
	r.record = &record
	return &record, nil
}

func (r *captureRepo) ListByAthlete(context.Context, string, string, *Cursor, int) ([]WellnessRecord, *Cursor, error) {
	return nil, nil, nil
}

func TestCheckInTruncatesDateAndKeepsZeroPain(t *testing.T) {
	repo := &captureRepo{}
	svc := NewWellnessService(repo)

	pain := 0
	stored, err := svc.CheckIn(context.Background(), CheckInInput{
		TenantID:  "tenant-1",
		AthleteID: "ath-1",
		Date:      time.Date(2025, time.November, 18, 14, 45, 0, 0, time.UTC),
		PainLevel: &pain,
	})
	require.NoError(t, err)
	require.NotNil(t, stored)

	require.Equal(t, time.Date(2025, time.November, 18, 0, 0, 0, 0, time.UTC), repo.record.Date)
	require.NotNil(t, repo.record.PainLevel)
	require.Equal(t, 0, *repo.record.PainLevel)
	require.Nil(t, repo.record.SleepHours)
	require.NotEmpty(t, repo.record.ID)
}

func TestCheckInValidation(t *testing.T) {
	svc := NewWellnessService(&captureRepo{})

	badVitality := 11
	cases := []CheckInInput{
		{TenantID: "tenant-1", Date: time.Now()},                                                  // missing athlete
		{TenantID: "tenant-1", AthleteID: "ath-1"},                                                // missing date
		{TenantID: "tenant-1", AthleteID: "ath-1", Date: time.Now(), VitalityLevel: &badVitality}, // out of range
	}

	for _, in := range cases {
		_, err := svc.CheckIn(context.Background(), in)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrValidation), "expected validation error, got %v", err)
	}
}
