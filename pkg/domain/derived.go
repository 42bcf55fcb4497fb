package domain

import "time"

// LevelScore maps a probability or impact level onto its numeric weight.
// Unknown levels score zero.
func LevelScore(l Level) int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	}
	return 0
}

// RiskScore is probability weight times impact weight, in 1..9 for valid inputs.
func RiskScore(probability, impact Level) int {
	return LevelScore(probability) * LevelScore(impact)
}

// BudgetUtilization returns spent/budget, or 0 when no budget is allocated.
func BudgetUtilization(spent, budget float64) float64 {
	if budget <= 0 {
		return 0
	}
	return spent / budget
}

// ScheduleProgress reports the elapsed share of the [start, end) window as a
// percentage clamped to [0, 100].
func ScheduleProgress(start, end, now time.Time) float64 {
	if !end.After(start) {
		return 0
	}
	if !now.After(start) {
		return 0
	}
	if !now.Before(end) {
		return 100
	}
	return float64(now.Sub(start)) / float64(end.Sub(start)) * 100
}
