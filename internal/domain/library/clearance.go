package library

import "math"

// Semester-progression clearance policy: registration for the 5th and 7th
// semesters requires the student to have returned at least 80% of every book
// ever issued to them.
const (
	// RequiredClearancePercentage is the cumulative return threshold.
	RequiredClearancePercentage = 80.0
)

// gatedSemesters are the semester transitions at which clearance is enforced.
var gatedSemesters = map[int]bool{5: true, 7: true}

// ClearanceResult is the outcome of evaluating the book-return quota for a
// registration attempt.
type ClearanceResult struct {
	// RequiresClearance is true only for gated target semesters (5 and 7).
	RequiresClearance bool

	// TotalIssued is the cumulative number of books issued.
	TotalIssued int

	// RequiredReturns = ceil(TotalIssued * 0.80).
	RequiredReturns int

	// ActualReturns is the cumulative number of books returned.
	ActualReturns int

	// Shortfall is how many more returns are needed at a gated semester,
	// zero otherwise.
	Shortfall int

	// MeetsRequirement is true when the gate is open for this student.
	MeetsRequirement bool

	// ClearancePercentage is the current cumulative return percentage,
	// rounded to two decimals. Vacuously 100 with nothing issued.
	ClearancePercentage float64

	// RequiredPercentage echoes the policy threshold for display.
	RequiredPercentage float64
}

// EvaluateClearance computes whether a student meets the book-return quota for
// registering into targetSemester. Pure function of its inputs.
//
// Clearance gates only the 5th and 7th semester transitions; every other
// target semester passes vacuously with zero shortfall. The required return
// count is rounded up, so 10 issued books require 8 returns.
func EvaluateClearance(currentSemester, targetSemester, totalIssued, totalReturned int) ClearanceResult {
	requires := gatedSemesters[targetSemester]

	required := int(math.Ceil(float64(totalIssued) * RequiredClearancePercentage / 100))

	percentage := 100.0
	if totalIssued > 0 {
		percentage = float64(totalReturned) / float64(totalIssued) * 100
	}
	percentage = math.Round(percentage*100) / 100

	meets := !requires || totalReturned >= required

	shortfall := 0
	if requires && required > totalReturned {
		shortfall = required - totalReturned
	}

	return ClearanceResult{
		RequiresClearance:   requires,
		TotalIssued:         totalIssued,
		RequiredReturns:     required,
		ActualReturns:       totalReturned,
		Shortfall:           shortfall,
		MeetsRequirement:    meets,
		ClearancePercentage: percentage,
		RequiredPercentage:  RequiredClearancePercentage,
	}
}
