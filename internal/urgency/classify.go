package urgency

import (
	"fmt"
	"time"

	"example.com/urgency/internal/domain"
)

// Lookback windows for the activity-recency check.
const (
	RecencyWindowLong  = 7 * 24 * time.Hour
	RecencyWindowShort = 4 * 24 * time.Hour
)

// ClassifySleep maps a sleep average onto a flag.
// Boundaries: < 6h red, 6h to < 8h yellow, >= 8h green.
func ClassifySleep(avg Average) domain.UrgencyFlag {
	var severity domain.Severity
	var msg string
	switch {
	case avg.Value < 6:
		severity = domain.SeverityRed
		msg = fmt.Sprintf("low sleep: averaging %.1fh over %d reported days", avg.Value, avg.DaysReported)
	case avg.Value < 8:
		severity = domain.SeverityYellow
		msg = fmt.Sprintf("sleep below target: averaging %.1fh over %d reported days", avg.Value, avg.DaysReported)
	default:
		severity = domain.SeverityGreen
		msg = fmt.Sprintf("sleep on track: averaging %.1fh over %d reported days", avg.Value, avg.DaysReported)
	}
	return flagFor(severity, domain.CategorySleep, msg, avg)
}

// ClassifyVitality maps a vitality average (1-10 scale) onto a flag.
// Boundaries: < 5 red, 5 to < 7 yellow, >= 7 green.
func ClassifyVitality(avg Average) domain.UrgencyFlag {
	var severity domain.Severity
	var msg string
	switch {
	case avg.Value < 5:
		severity = domain.SeverityRed
		msg = fmt.Sprintf("low vitality: averaging %.1f/10 over %d reported days", avg.Value, avg.DaysReported)
	case avg.Value < 7:
		severity = domain.SeverityYellow
		msg = fmt.Sprintf("vitality dipping: averaging %.1f/10 over %d reported days", avg.Value, avg.DaysReported)
	default:
		severity = domain.SeverityGreen
		msg = fmt.Sprintf("vitality on track: averaging %.1f/10 over %d reported days", avg.Value, avg.DaysReported)
	}
	return flagFor(severity, domain.CategoryVitality, msg, avg)
}

// ClassifyPain maps a pain average onto a flag. Pain is the only metric that
// can escalate to critical. Boundaries: > 4 critical, > 3 red, > 2 yellow,
// <= 2 green.
func ClassifyPain(avg Average) domain.UrgencyFlag {
	var severity domain.Severity
	var msg string
	switch {
	case avg.Value > 4:
		severity = domain.SeverityCritical
		msg = fmt.Sprintf("severe pain: averaging %.1f over %d reported days", avg.Value, avg.DaysReported)
	case avg.Value > 3:
		severity = domain.SeverityRed
		msg = fmt.Sprintf("high pain: averaging %.1f over %d reported days", avg.Value, avg.DaysReported)
	case avg.Value > 2:
		severity = domain.SeverityYellow
		msg = fmt.Sprintf("elevated pain: averaging %.1f over %d reported days", avg.Value, avg.DaysReported)
	default:
		severity = domain.SeverityGreen
		msg = fmt.Sprintf("pain under control: averaging %.1f over %d reported days", avg.Value, avg.DaysReported)
	}
	return flagFor(severity, domain.CategoryPain, msg, avg)
}

func flagFor(severity domain.Severity, category domain.Category, msg string, avg Average) domain.UrgencyFlag {
	value := avg.Value
	return domain.UrgencyFlag{
		Severity:     severity,
		Category:     category,
		Message:      msg,
		Average:      &value,
		DaysReported: avg.DaysReported,
	}
}

// ActivityRecency evaluates completed sessions against the 7-day and 4-day
// windows ending at now. Both counts come from the same record slice, so the
// 4-day count is always a subset of the 7-day count and the two can never
// disagree. The boolean is false when no flag applies (recent activity in
// both windows).
func ActivityRecency(records []domain.ActivityRecord, now time.Time) (domain.UrgencyFlag, bool) {
	longCutoff := now.Add(-RecencyWindowLong)
	shortCutoff := now.Add(-RecencyWindowShort)

	var inLong, inShort int
	for _, r := range records {
		if !r.Completed || r.StartedAt.Before(longCutoff) || r.StartedAt.After(now) {
			continue
		}
		inLong++
		if !r.StartedAt.Before(shortCutoff) {
			inShort++
		}
	}

	switch {
	case inLong == 0:
		return domain.UrgencyFlag{
			Severity: domain.SeverityRed,
			Category: domain.CategoryActivity,
			Message:  "no completed sessions in the last 7 days",
		}, true
	case inShort == 0:
		return domain.UrgencyFlag{
			Severity: domain.SeverityYellow,
			Category: domain.CategoryActivity,
			Message:  "no completed sessions in the last 4 days",
		}, true
	default:
		return domain.UrgencyFlag{}, false
	}
}

// Severity weights for the aggregate urgency score.
var severityWeights = map[domain.Severity]float64{
	domain.SeverityCritical: 10,
	domain.SeverityRed:      5,
	domain.SeverityYellow:   2,
	domain.SeverityGreen:    0,
}

// Score sums severity weights across flags.
func Score(flags []domain.UrgencyFlag) float64 {
	var total float64
	for _, f := range flags {
		total += severityWeights[f.Severity]
	}
	return total
}

// DetermineUrgencyLevel collapses a flag list onto the 4-level output scale:
// any critical flag wins, then any red, then any yellow, else low.
func DetermineUrgencyLevel(flags []domain.UrgencyFlag) domain.UrgencyLevel {
	highest := domain.SeverityGreen
	for _, f := range flags {
		if f.Severity.Rank() > highest.Rank() {
			highest = f.Severity
		}
	}
	switch highest {
	case domain.SeverityCritical:
		return domain.UrgencyCritical
	case domain.SeverityRed:
		return domain.UrgencyHigh
	case domain.SeverityYellow:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}
