package refrange

// Resolve picks the interval that applies to a patient of the given cohort
// and sex. Candidates must match the cohort and either the patient's sex or
// SexBoth. An exact sex match wins over SexBoth; among equals the lowest Seq
// wins, so the result does not depend on the order of intervals. Nil means
// no interval applies.
func Resolve(intervals []*Interval, cohort Cohort, sex Sex) *Interval {
	var best *Interval
	bestExact := false
	for _, iv := range intervals {
		if iv == nil || iv.AgeCohort != cohort {
			continue
		}
		exact := iv.Sex == sex
		if !exact && iv.Sex != SexBoth {
			continue
		}
		switch {
		case best == nil:
		case exact && !bestExact:
		case exact == bestExact && iv.Seq < best.Seq:
		default:
			continue
		}
		best, bestExact = iv, exact
	}
	return best
}

// ResolveForAge classifies age and resolves in one step.
func ResolveForAge(intervals []*Interval, age int, sex Sex) *Interval {
	return Resolve(intervals, Classify(age), sex)
}
