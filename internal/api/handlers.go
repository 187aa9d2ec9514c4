// Package api exposes HTTP handlers for the urgency service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/urgency/internal/auth"
	"example.com/urgency/internal/checker"
	"example.com/urgency/internal/domain"
	"example.com/urgency/internal/persistence"
	"example.com/urgency/internal/urgency"
)

// Handler coordinates HTTP requests with the checker and wellness services.
type Handler struct {
	checker  *checker.Service
	wellness *domain.WellnessService
}

// NewHandler builds a Handler.
func NewHandler(checkerService *checker.Service, wellnessService *domain.WellnessService) *Handler {
	return &Handler{checker: checkerService, wellness: wellnessService}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/athletes/urgency", h.athletesByUrgency)
	mux.HandleFunc("/v1/athletes/", h.athleteSubresource)
	mux.HandleFunc("/v1/wellness", h.wellnessEndpoint)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) athletesByUrgency(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeUrgencyRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope urgency:read required")
		return
	}

	requester := checker.Requester{
		UserID:   claims.Subject,
		TenantID: claims.TenantID,
		Role:     checker.Role(claims.Role),
	}

	ranked, err := h.checker.RankAthletesByUrgency(r.Context(), requester, time.Now().UTC())
	if err != nil {
		if errors.Is(err, checker.ErrRoleNotAllowed) {
			writeError(w, http.StatusForbidden, "forbidden", "only coaches and admins can view athlete urgency")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]AthleteUrgencyView, 0, len(ranked))
	for _, a := range ranked {
		items = append(items, toAthleteUrgencyView(a))
	}
	writeJSON(w, http.StatusOK, AthleteUrgencyListResponse{Items: items})
}

func (h *Handler) athleteSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/athletes/")
	athleteID, sub, found := strings.Cut(rest, "/")
	if !found || sub != "flags" || athleteID == "" {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeUrgencyRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope urgency:read required")
		return
	}

	flags, lastActivity := h.checker.CheckAthleteFlags(r.Context(), claims.TenantID, athleteID, time.Now().UTC())

	resp := AthleteFlagsResponse{
		AthleteID:      athleteID,
		Flags:          toFlagViews(flags),
		UrgencyLevel:   string(urgency.DetermineUrgencyLevel(flags)),
		LastActivityAt: lastActivity,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) wellnessEndpoint(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createWellness(w, r)
	case http.MethodGet:
		h.listWellness(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createWellness(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeWellnessWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope wellness:write required")
		return
	}

	var req CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	athleteID := req.AthleteID
	if athleteID == "" {
		athleteID = claims.Subject
	}
	// Athletes may only write their own check-ins; staff can write for anyone.
	if athleteID != claims.Subject && claims.Role != string(checker.RoleCoach) && claims.Role != string(checker.RoleAdmin) {
		writeError(w, http.StatusForbidden, "forbidden", "cannot record wellness for another athlete")
		return
	}

	record, err := h.wellness.CheckIn(r.Context(), domain.CheckInInput{
		TenantID:      claims.TenantID,
		AthleteID:     athleteID,
		Date:          req.Date,
		SleepHours:    req.SleepHours,
		VitalityLevel: req.VitalityLevel,
		PainLevel:     req.PainLevel,
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toWellnessView(*record))
}

func (h *Handler) listWellness(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeWellnessRead) && !claims.HasScope(auth.ScopeWellnessWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope wellness:read required")
		return
	}

	athleteID := r.URL.Query().Get("athlete_id")
	if athleteID == "" {
		athleteID = claims.Subject
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	records, next, err := h.wellness.History(r.Context(), claims.TenantID, athleteID, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]WellnessView, 0, len(records))
	for _, rec := range records {
		items = append(items, toWellnessView(rec))
	}
	writeJSON(w, http.StatusOK, WellnessListResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

// CheckInRequest is the payload for POST /v1/wellness. Omitted metrics are
// stored as not reported.
type CheckInRequest struct {
	AthleteID     string    `json:"athlete_id,omitempty"`
	Date          time.Time `json:"date"`
	SleepHours    *float64  `json:"sleep_hours,omitempty"`
	VitalityLevel *int      `json:"vitality_level,omitempty"`
	PainLevel     *int      `json:"pain_level,omitempty"`
}

// UrgencyFlagView exposes one classified signal.
type UrgencyFlagView struct {
	Severity     string   `json:"severity"`
	Category     string   `json:"category"`
	Message      string   `json:"message"`
	Average      *float64 `json:"average,omitempty"`
	DaysReported int      `json:"days_reported,omitempty"`
}

// AthleteFlagsResponse is the per-athlete check result.
type AthleteFlagsResponse struct {
	AthleteID      string            `json:"athlete_id"`
	Flags          []UrgencyFlagView `json:"flags"`
	UrgencyLevel   string            `json:"urgency_level"`
	LastActivityAt *time.Time        `json:"last_activity_at,omitempty"`
}

// AthleteUrgencyView is one entry of the ranked list.
type AthleteUrgencyView struct {
	AthleteID      string            `json:"athlete_id"`
	DisplayName    string            `json:"display_name"`
	Flags          []UrgencyFlagView `json:"flags"`
	UrgencyScore   float64           `json:"urgency_score"`
	UrgencyLevel   string            `json:"urgency_level"`
	LastActivityAt *time.Time        `json:"last_activity_at,omitempty"`
}

// AthleteUrgencyListResponse packages the ranked list.
type AthleteUrgencyListResponse struct {
	Items []AthleteUrgencyView `json:"items"`
}

// WellnessView exposes one stored wellness record.
type WellnessView struct {
	WellnessID    string    `json:"wellness_id"`
	AthleteID     string    `json:"athlete_id"`
	Date          time.Time `json:"date"`
	SleepHours    *float64  `json:"sleep_hours,omitempty"`
	VitalityLevel *int      `json:"vitality_level,omitempty"`
	PainLevel     *int      `json:"pain_level,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// WellnessListResponse packages history results.
type WellnessListResponse struct {
	Items      []WellnessView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func toFlagViews(flags []domain.UrgencyFlag) []UrgencyFlagView {
	views := make([]UrgencyFlagView, 0, len(flags))
	for _, f := range flags {
		views = append(views, UrgencyFlagView{
			Severity:     string(f.Severity),
			Category:     string(f.Category),
			Message:      f.Message,
			Average:      f.Average,
			DaysReported: f.DaysReported,
		})
	}
	return views
}

func toAthleteUrgencyView(a domain.AthleteUrgency) AthleteUrgencyView {
	return AthleteUrgencyView{
		AthleteID:      a.AthleteID,
		DisplayName:    a.DisplayName,
		Flags:          toFlagViews(a.Flags),
		UrgencyScore:   a.Score,
		UrgencyLevel:   string(a.Level),
		LastActivityAt: a.LastActivityAt,
	}
}

func toWellnessView(rec domain.WellnessRecord) WellnessView {
	return WellnessView{
		WellnessID:    rec.ID,
		AthleteID:     rec.AthleteID,
		Date:          rec.Date,
		SleepHours:    rec.SleepHours,
		VitalityLevel: rec.VitalityLevel,
		PainLevel:     rec.PainLevel,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
