// Package urgency contains the pure aggregation and classification rules
// behind the athlete urgency view. No function in this package performs I/O.
package urgency

import (
	"example.com/urgency/internal/domain"
)

// Average is a smart average over the reported days of a window.
type Average struct {
	Value        float64
	DaysReported int
}

// IsSleepReported reports whether a record carries a usable sleep value.
// Zero hours is treated the same as absent: nobody logs a true zero-sleep
// night, it is the form's "left blank" value.
func IsSleepReported(r domain.WellnessRecord) bool {
	return r.SleepHours != nil && *r.SleepHours > 0
}

// IsVitalityReported reports whether a record carries a usable vitality
// value. The scale is 1-10, so zero means unreported.
func IsVitalityReported(r domain.WellnessRecord) bool {
	return r.VitalityLevel != nil && *r.VitalityLevel > 0
}

// IsPainReported reports whether a record carries a pain value. Unlike sleep
// and vitality, an explicit zero is a real "no pain" report and counts.
func IsPainReported(r domain.WellnessRecord) bool {
	return r.PainLevel != nil
}

// SleepAverage averages sleep hours over reported days only. The second
// return value is false when no day in the window reported sleep.
func SleepAverage(records []domain.WellnessRecord) (Average, bool) {
	var sum float64
	days := 0
	for _, r := range records {
		if !IsSleepReported(r) {
			continue
		}
		sum += *r.SleepHours
		days++
	}
	if days == 0 {
		return Average{}, false
	}
	return Average{Value: sum / float64(days), DaysReported: days}, true
}

// VitalityAverage averages vitality levels over reported days only.
func VitalityAverage(records []domain.WellnessRecord) (Average, bool) {
	var sum float64
	days := 0
	for _, r := range records {
		if !IsVitalityReported(r) {
			continue
		}
		sum += float64(*r.VitalityLevel)
		days++
	}
	if days == 0 {
		return Average{}, false
	}
	return Average{Value: sum / float64(days), DaysReported: days}, true
}

// PainAverage averages pain levels over reported days. Explicit zeros are
// included in both numerator and denominator.
func PainAverage(records []domain.WellnessRecord) (Average, bool) {
	var sum float64
	days := 0
	for _, r := range records {
		if !IsPainReported(r) {
			continue
		}
		sum += float64(*r.PainLevel)
		days++
	}
	if days == 0 {
		return Average{}, false
	}
	return Average{Value: sum / float64(days), DaysReported: days}, true
}
