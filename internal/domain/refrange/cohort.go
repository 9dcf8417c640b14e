package refrange

// Cohort is the age bucket used to select reference intervals.
type Cohort string

const (
	CohortChild  Cohort = "CHILD"
	CohortAdult  Cohort = "ADULT"
	CohortSenior Cohort = "SENIOR"
)

// Sex is the applicability axis of an interval. Patients only ever carry
// SexMale or SexFemale; SexBoth exists on intervals.
type Sex string

const (
	SexMale   Sex = "MALE"
	SexFemale Sex = "FEMALE"
	SexBoth   Sex = "BOTH"
)

// Age thresholds, inclusive upper bounds.
const (
	ChildMaxAge = 18
	AdultMaxAge = 59
)

var validCohorts = map[Cohort]bool{
	CohortChild: true, CohortAdult: true, CohortSenior: true,
}

var validIntervalSexes = map[Sex]bool{
	SexMale: true, SexFemale: true, SexBoth: true,
}

var validPatientSexes = map[Sex]bool{
	SexMale: true, SexFemale: true,
}

func (c Cohort) Valid() bool { return validCohorts[c] }

// ValidForInterval reports whether s may tag a reference interval.
func (s Sex) ValidForInterval() bool { return validIntervalSexes[s] }

// ValidForPatient reports whether s may describe a patient.
func (s Sex) ValidForPatient() bool { return validPatientSexes[s] }

// Classify maps an age in years to its cohort. Negative ages classify as
// CohortChild.
func Classify(age int) Cohort {
	switch {
	case age <= ChildMaxAge:
		return CohortChild
	case age <= AdultMaxAge:
		return CohortAdult
	default:
		return CohortSenior
	}
}
