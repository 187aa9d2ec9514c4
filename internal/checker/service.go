// Package checker orchestrates per-athlete urgency checks and the ranked
// population view.
package checker

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"example.com/urgency/internal/domain"
	"example.com/urgency/internal/observability"
	"example.com/urgency/internal/urgency"
)

// ErrRoleNotAllowed is returned when the requester role may not view the
// ranked athlete list.
var ErrRoleNotAllowed = errors.New("role not allowed to view athlete urgency")

// Role is the requester's platform role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleCoach Role = "coach"
)

// Requester identifies who is asking for the ranked view.
type Requester struct {
	UserID   string
	TenantID string
	Role     Role
}

// WellnessReader fetches wellness records for a window.
type WellnessReader interface {
	ListWindow(ctx context.Context, tenantID, athleteID string, from, to time.Time) ([]domain.WellnessRecord, error)
}

// ActivityReader fetches completed activity records since a lower bound.
type ActivityReader interface {
	ListCompletedSince(ctx context.Context, tenantID, athleteID string, since time.Time) ([]domain.ActivityRecord, error)
}

// RosterReader resolves which athletes a requester may see.
type RosterReader interface {
	ListAthletes(ctx context.Context, tenantID string) ([]domain.Athlete, error)
	ListAssignedAthletes(ctx context.Context, tenantID, coachID string) ([]domain.Athlete, error)
}

// Option configures optional Service behaviour.
type Option func(*Service)

// WithLogger overrides the logger used to report fetch failures.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCheckTimeout bounds each per-athlete flag check.
func WithCheckTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.checkTimeout = d
		}
	}
}

// WithConcurrency caps the number of athlete checks in flight.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// Service runs the urgency pipeline against the persistence layer.
type Service struct {
	wellness     WellnessReader
	activity     ActivityReader
	roster       RosterReader
	logger       *log.Logger
	checkTimeout time.Duration
	concurrency  int
}

// NewService constructs a Service.
func NewService(wellness WellnessReader, activity ActivityReader, roster RosterReader, opts ...Option) *Service {
	s := &Service{
		wellness:     wellness,
		activity:     activity,
		roster:       roster,
		logger:       log.New(log.Writer(), "[checker] ", log.LstdFlags),
		checkTimeout: 5 * time.Second,
		concurrency:  8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckAthleteFlags produces the ordered flag list for one athlete: the
// activity-recency flag first, then sleep, vitality and pain. A fetch
// failure in one category is logged and that category's flags are omitted;
// the returned list is never nil on account of an error. The second return
// value is the most recent completed session start, when known.
func (s *Service) CheckAthleteFlags(ctx context.Context, tenantID, athleteID string, now time.Time) ([]domain.UrgencyFlag, *time.Time) {
	flags := make([]domain.UrgencyFlag, 0, 4)
	var lastActivity *time.Time

	activities, err := s.activity.ListCompletedSince(ctx, tenantID, athleteID, now.Add(-urgency.RecencyWindowLong))
	if err != nil {
		s.logger.Printf("activity fetch failed (athlete=%s): %v", athleteID, err)
		observability.RecordFetchFailure(string(domain.CategoryActivity))
	} else {
		if flag, ok := urgency.ActivityRecency(activities, now); ok {
			flags = append(flags, flag)
		}
		for _, a := range activities {
			if a.Completed && (lastActivity == nil || a.StartedAt.After(*lastActivity)) {
				started := a.StartedAt
				lastActivity = &started
			}
		}
	}

	records, err := s.wellness.ListWindow(ctx, tenantID, athleteID, now.Add(-urgency.RecencyWindowLong), now)
	if err != nil {
		s.logger.Printf("wellness fetch failed (athlete=%s): %v", athleteID, err)
		observability.RecordFetchFailure("wellness")
		return flags, lastActivity
	}

	if avg, ok := urgency.SleepAverage(records); ok {
		flags = append(flags, urgency.ClassifySleep(avg))
	}
	if avg, ok := urgency.VitalityAverage(records); ok {
		flags = append(flags, urgency.ClassifyVitality(avg))
	}
	if avg, ok := urgency.PainAverage(records); ok {
		flags = append(flags, urgency.ClassifyPain(avg))
	}

	return flags, lastActivity
}

// RankAthletesByUrgency resolves the requester's roster, checks every
// athlete concurrently and returns the list sorted most urgent first.
// Roster resolution failure degrades to an empty list; only a disallowed
// role is surfaced as an error.
func (s *Service) RankAthletesByUrgency(ctx context.Context, requester Requester, now time.Time) ([]domain.AthleteUrgency, error) {
	start := time.Now()

	var athletes []domain.Athlete
	var err error
	switch requester.Role {
	case RoleAdmin:
		athletes, err = s.roster.ListAthletes(ctx, requester.TenantID)
	case RoleCoach:
		athletes, err = s.roster.ListAssignedAthletes(ctx, requester.TenantID, requester.UserID)
	default:
		return nil, ErrRoleNotAllowed
	}
	if err != nil {
		s.logger.Printf("roster fetch failed (tenant=%s, requester=%s): %v", requester.TenantID, requester.UserID, err)
		observability.RecordFetchFailure("roster")
		return []domain.AthleteUrgency{}, nil
	}

	results := make([]domain.AthleteUrgency, len(athletes))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for i, athlete := range athletes {
		group.Go(func() error {
			checkCtx, cancel := context.WithTimeout(groupCtx, s.checkTimeout)
			defer cancel()

			flags, lastActivity := s.CheckAthleteFlags(checkCtx, requester.TenantID, athlete.ID, now)
			results[i] = domain.AthleteUrgency{
				AthleteID:      athlete.ID,
				DisplayName:    athlete.DisplayName,
				Flags:          flags,
				Score:          urgency.Score(flags),
				Level:          urgency.DetermineUrgencyLevel(flags),
				LastActivityAt: lastActivity,
			}
			observability.RecordAthleteChecked()
			return nil
		})
	}
	// Goroutines only ever return nil; Wait is for completion, not errors.
	_ = group.Wait()

	SortByUrgency(results)

	observability.RecordRanking(time.Since(start), len(results))
	return results, nil
}

// SortByUrgency orders athletes most urgent first: by severe (critical or
// red) flag count descending, then yellow flag count descending, then
// urgency-level rank ascending, then athlete ID ascending so fully tied
// athletes come back in a stable order.
func SortByUrgency(list []domain.AthleteUrgency) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if sa, sb := a.SevereFlagCount(), b.SevereFlagCount(); sa != sb {
			return sa > sb
		}
		if ya, yb := a.YellowFlagCount(), b.YellowFlagCount(); ya != yb {
			return ya > yb
		}
		if ra, rb := a.Level.Rank(), b.Level.Rank(); ra != rb {
			return ra < rb
		}
		return a.AthleteID < b.AthleteID
	})
}
