package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"example.com/urgency/internal/auth"
	"example.com/urgency/internal/checker"
	"example.com/urgency/internal/domain"
)

func newCheckerService(w checker.WellnessReader, a checker.ActivityReader, r checker.RosterReader) *checker.Service {
	return checker.NewService(w, a, r, checker.WithLogger(log.New(io.Discard, "", 0)))
}

var testNow = time.Date(2025, time.November, 20, 12, 0, 0, 0, time.UTC)

type stubWellnessReader struct {
	records []domain.WellnessRecord
}

func (s *stubWellnessReader) ListWindow(context.Context, string, string, time.Time, time.Time) ([]domain.WellnessRecord, error) {
	return s.records, nil
}

type stubActivityReader struct {
	records []domain.ActivityRecord
}

func (s *stubActivityReader) ListCompletedSince(context.Context, string, string, time.Time) ([]domain.ActivityRecord, error) {
	return s.records, nil
}

type stubRosterReader struct {
	athletes []domain.Athlete
}

func (s *stubRosterReader) ListAthletes(context.Context, string) ([]domain.Athlete, error) {
	return s.athletes, nil
}

func (s *stubRosterReader) ListAssignedAthletes(context.Context, string, string) ([]domain.Athlete, error) {
	return s.athletes, nil
}

type mockWellnessRepo struct {
	upserted *domain.WellnessRecord
}

func (m *mockWellnessRepo) Upsert(_ context.Context, record domain.WellnessRecord) (*domain.WellnessRecord, error) {
	m.upserted = &record
	return &record, nil
}

func (m *mockWellnessRepo) ListByAthlete(context.Context, string, string, *domain.Cursor, int) ([]domain.WellnessRecord, *domain.Cursor, error) {
	return nil, nil, nil
}

func claimsFor(role string, scopes ...string) *auth.Claims {
	scopeSet := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		scopeSet[s] = struct{}{}
	}
	return &auth.Claims{
		Subject:   "user-1",
		TenantID:  "tenant-1",
		Role:      role,
		Scopes:    scopeSet,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func newTestHandler(roster *stubRosterReader, activity *stubActivityReader, wellness *stubWellnessReader, repo *mockWellnessRepo) *Handler {
	checkerService := newCheckerService(wellness, activity, roster)
	return NewHandler(checkerService, domain.NewWellnessService(repo))
}

func TestAthletesByUrgencySuccess(t *testing.T) {
	roster := &stubRosterReader{athletes: []domain.Athlete{{ID: "ath-1", DisplayName: "Idle Athlete"}}}
	handler := newTestHandler(roster, &stubActivityReader{}, &stubWellnessReader{}, &mockWellnessRepo{})

	req := httptest.NewRequest(http.MethodGet, "/v1/athletes/urgency", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), claimsFor("admin", auth.ScopeUrgencyRead)))

	rr := httptest.NewRecorder()
	handler.athletesByUrgency(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp AthleteUrgencyListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 athlete got %d", len(resp.Items))
	}
	item := resp.Items[0]
	if item.AthleteID != "ath-1" {
		t.Fatalf("unexpected athlete id %s", item.AthleteID)
	}
	// No completed sessions at all: the red activity flag drives "high".
	if item.UrgencyLevel != "high" {
		t.Fatalf("expected urgency level high got %s", item.UrgencyLevel)
	}
	if len(item.Flags) != 1 || item.Flags[0].Category != "activity" {
		t.Fatalf("expected single activity flag, got %+v", item.Flags)
	}
}

func TestAthletesByUrgencyRejectsAthleteRole(t *testing.T) {
	handler := newTestHandler(&stubRosterReader{}, &stubActivityReader{}, &stubWellnessReader{}, &mockWellnessRepo{})

	req := httptest.NewRequest(http.MethodGet, "/v1/athletes/urgency", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), claimsFor("athlete", auth.ScopeUrgencyRead)))

	rr := httptest.NewRecorder()
	handler.athletesByUrgency(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestAthletesByUrgencyRequiresScope(t *testing.T) {
	handler := newTestHandler(&stubRosterReader{}, &stubActivityReader{}, &stubWellnessReader{}, &mockWellnessRepo{})

	req := httptest.NewRequest(http.MethodGet, "/v1/athletes/urgency", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), claimsFor("admin")))

	rr := httptest.NewRecorder()
	handler.athletesByUrgency(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestAthleteFlagsEndpoint(t *testing.T) {
	sleep := 5.0
	wellness := &stubWellnessReader{records: []domain.WellnessRecord{
		{Date: testNow.AddDate(0, 0, -1), SleepHours: &sleep},
	}}
	activity := &stubActivityReader{records: []domain.ActivityRecord{
		{Completed: true, StartedAt: time.Now().UTC().Add(-time.Hour)},
	}}
	handler := newTestHandler(&stubRosterReader{}, activity, wellness, &mockWellnessRepo{})

	req := httptest.NewRequest(http.MethodGet, "/v1/athletes/ath-1/flags", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), claimsFor("coach", auth.ScopeUrgencyRead)))

	rr := httptest.NewRecorder()
	handler.athleteSubresource(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp AthleteFlagsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.AthleteID != "ath-1" {
		t.Fatalf("unexpected athlete id %s", resp.AthleteID)
	}
	if resp.UrgencyLevel != "high" {
		t.Fatalf("expected high urgency got %s", resp.UrgencyLevel)
	}
	found := false
	for _, f := range resp.Flags {
		if f.Category == "sleep" && f.Severity == "red" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a red sleep flag, got %+v", resp.Flags)
	}
}

func TestCheckInValidationFailure(t *testing.T) {
	handler := newTestHandler(&stubRosterReader{}, &stubActivityReader{}, &stubWellnessReader{}, &mockWellnessRepo{})

	body := `{"date":"2025-11-20T00:00:00Z","vitality_level":11}`
	req := httptest.NewRequest(http.MethodPost, "/v1/wellness", strings.NewReader(body))
	req = req.WithContext(auth.WithClaims(req.Context(), claimsFor("athlete", auth.ScopeWellnessWrite)))

	rr := httptest.NewRecorder()
	handler.wellnessEndpoint(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCheckInForAnotherAthleteForbidden(t *testing.T) {
	handler := newTestHandler(&stubRosterReader{}, &stubActivityReader{}, &stubWellnessReader{}, &mockWellnessRepo{})

	body := `{"athlete_id":"someone-else","date":"2025-11-20T00:00:00Z","sleep_hours":7.5}`
	req := httptest.NewRequest(http.MethodPost, "/v1/wellness", strings.NewReader(body))
	req = req.WithContext(auth.WithClaims(req.Context(), claimsFor("athlete", auth.ScopeWellnessWrite)))

	rr := httptest.NewRecorder()
	handler.wellnessEndpoint(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestCheckInUpsertsOwnRecord(t *testing.T) {
	repo := &mockWellnessRepo{}
	handler := newTestHandler(&stubRosterReader{}, &stubActivityReader{}, &stubWellnessReader{}, repo)

	body := `{"date":"2025-11-20T10:30:00Z","sleep_hours":7.5,"pain_level":0}`
	req := httptest.NewRequest(http.MethodPost, "/v1/wellness", strings.NewReader(body))
	req = req.WithContext(auth.WithClaims(req.Context(), claimsFor("athlete", auth.ScopeWellnessWrite)))

	rr := httptest.NewRecorder()
	handler.wellnessEndpoint(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	if repo.upserted == nil {
		t.Fatal("expected an upserted record")
	}
	if repo.upserted.AthleteID != "user-1" {
		t.Fatalf("check-in should default to the caller's athlete id, got %s", repo.upserted.AthleteID)
	}
	if !repo.upserted.Date.Equal(time.Date(2025, time.November, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected date truncated to midnight, got %s", repo.upserted.Date)
	}
	if repo.upserted.PainLevel == nil || *repo.upserted.PainLevel != 0 {
		t.Fatal("explicit zero pain level must be stored, not dropped")
	}
}
