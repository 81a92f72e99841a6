package cohort

// Cohort, sex and age-group labels as they appear in responses.
const (
	CohortDisease    = "Disease"
	CohortNonDisease = "Non-Disease"

	SexMale   = "Male"
	SexFemale = "Female"
	SexOther  = "Other"

	AgeUnder20   = "<20"
	Age20To40    = "20–40"
	Age40To60    = "40–60"
	Age60AndOver = "60+"
	AgeUnknown   = "Unknown"

	GenderMaleConceptID   int64 = 8507
	GenderFemaleConceptID int64 = 8532
)

// Counts is the case/control split of the whole person table.
type Counts struct {
	TotalPeople  int64 `json:"total_people"`
	CaseCount    int64 `json:"case_count"`
	ControlCount int64 `json:"control_count"`
}

// AgeSexRow is one cell of the cohort × sex × age-group breakdown.
type AgeSexRow struct {
	Cohort   string `json:"cohort"`
	Sex      string `json:"sex"`
	AgeGroup string `json:"age_group"`
	Count    int64  `json:"count"`
}

// OutcomeRow is a single lab value labelled with its person's cohort.
type OutcomeRow struct {
	Cohort string  `json:"cohort"`
	Value  float64 `json:"value"`
}

// GroupStats summarises one cohort's values. The quantiles are nil when N is
// zero.
type GroupStats struct {
	N      int      `json:"n"`
	Median *float64 `json:"median"`
	P25    *float64 `json:"p25"`
	P75    *float64 `json:"p75"`
}

// Overview bundles the dashboard queries for one disease.
type Overview struct {
	Disease       string                `json:"disease"`
	Label         string                `json:"label"`
	MeasurementID int64                 `json:"measurement_id"`
	Counts        *Counts               `json:"counts"`
	AgeSex        []AgeSexRow           `json:"age_sex"`
	SummaryStats  map[string]GroupStats `json:"summary_stats"`
}
