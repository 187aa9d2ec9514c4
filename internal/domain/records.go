// Package domain defines the business logic for the urgency service.
package domain

import "time"

// Severity is an ordered tier attached to a single urgency flag.
type Severity string

const (
	SeverityGreen    Severity = "green"
	SeverityYellow   Severity = "yellow"
	SeverityRed      Severity = "red"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from least (0) to most severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityYellow:
		return 1
	case SeverityRed:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// Category identifies which signal produced a flag.
type Category string

const (
	CategorySleep    Category = "sleep"
	CategoryVitality Category = "vitality"
	CategoryPain     Category = "pain"
	CategoryActivity Category = "activity"
)

// UrgencyLevel is the collapsed overall level for one athlete.
type UrgencyLevel string

const (
	UrgencyCritical UrgencyLevel = "critical"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyLow      UrgencyLevel = "low"
)

// Rank orders urgency levels from most urgent (0) to least (3).
func (l UrgencyLevel) Rank() int {
	switch l {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 1
	case UrgencyMedium:
		return 2
	default:
		return 3
	}
}

// WellnessRecord is one athlete check-in for one calendar date.
// Nil SleepHours/VitalityLevel/PainLevel mean the metric was not reported;
// for sleep and vitality a zero value also counts as not reported, while a
// pain level of zero is a real "no pain" report.
type WellnessRecord struct {
	ID            string
	TenantID      string
	AthleteID     string
	Date          time.Time
	SleepHours    *float64
	VitalityLevel *int
	PainLevel     *int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ActivityRecord is one training session ingested from the session service.
// Only completed sessions count toward activity-recency checks.
type ActivityRecord struct {
	ID          string
	TenantID    string
	AthleteID   string
	SessionType string
	StartedAt   time.Time
	DurationMin int
	Completed   bool
	CreatedAt   time.Time
}

// UrgencyFlag is one classified signal. Flags are derived at query time and
// never persisted.
type UrgencyFlag struct {
	Severity     Severity
	Category     Category
	Message      string
	Average      *float64
	DaysReported int
}

// Athlete is a roster entry visible to a requester.
type Athlete struct {
	ID          string
	DisplayName string
}

// AthleteUrgency aggregates one athlete's flags for the ranked coach view.
type AthleteUrgency struct {
	AthleteID      string
	DisplayName    string
	Flags          []UrgencyFlag
	Score          float64
	Level          UrgencyLevel
	LastActivityAt *time.Time
}

// SevereFlagCount returns the number of critical or red flags.
func (a AthleteUrgency) SevereFlagCount() int {
	n := 0
	for _, f := range a.Flags {
		if f.Severity == SeverityCritical || f.Severity == SeverityRed {
			n++
		}
	}
	return n
}

// YellowFlagCount returns the number of yellow flags.
func (a AthleteUrgency) YellowFlagCount() int {
	n := 0
	for _, f := range a.Flags {
		if f.Severity == SeverityYellow {
			n++
		}
	}
	return n
}

// Cursor models the pagination token for wellness history listings.
type Cursor struct {
	Date time.Time
	ID   string
}
