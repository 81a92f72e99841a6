package cohort

import (
	"fmt"

	"github.com/ehr/cohort/internal/domain/terminology"
)

var (
	cohortLabel = fmt.Sprintf(`CASE WHEN f.is_disease = 1 THEN '%s' ELSE '%s' END`,
		CohortDisease, CohortNonDisease)

	sexLabel = fmt.Sprintf(`CASE
		WHEN p.gender_concept_id = %d THEN '%s'
		WHEN p.gender_concept_id = %d THEN '%s'
		ELSE '%s'
	END`, GenderMaleConceptID, SexMale, GenderFemaleConceptID, SexFemale, SexOther)

	ageGroupLabel = fmt.Sprintf(`CASE
		WHEN p.age IS NULL THEN '%s'
		WHEN p.age < 20 THEN '%s'
		WHEN p.age BETWEEN 20 AND 39 THEN '%s'
		WHEN p.age BETWEEN 40 AND 59 THEN '%s'
		ELSE '%s'
	END`, AgeUnknown, AgeUnder20, Age20To40, Age40To60, Age60AndOver)
)

// flagsSQL flags every person with is_disease = 1 when any of their
// conditions is in the disease's descendant set. Persons without conditions
// are kept by the LEFT JOIN and flagged 0.
func flagsSQL(codes []string) terminology.Fragment {
	desc := terminology.Descendants(codes)
	return terminology.Fragment{
		SQL: `SELECT
			p.person_id,
			MAX(
				CASE
					WHEN co.condition_concept_id IN (` + desc.SQL + `)
					THEN 1 ELSE 0
				END
			) AS is_disease
		FROM person p
		LEFT JOIN condition_occurrence co
			ON p.person_id = co.person_id
		GROUP BY p.person_id`,
		Args: desc.Args,
	}
}

// withFlags prefixes body with the flags CTE; bodyArgs follow the CTE's args.
func withFlags(codes []string, body string, bodyArgs ...any) terminology.Fragment {
	flags := flagsSQL(codes)
	args := append(append([]any{}, flags.Args...), bodyArgs...)
	return terminology.Fragment{
		SQL:  "WITH flags AS (\n" + flags.SQL + "\n)\n" + body,
		Args: args,
	}
}

func countsQuery(codes []string) terminology.Fragment {
	return withFlags(codes, `SELECT
		COUNT(*) AS total_people,
		CAST(COALESCE(SUM(f.is_disease), 0) AS BIGINT) AS case_count
	FROM flags f`)
}

func ageSexQuery(codes []string, currentYear int) terminology.Fragment {
	return withFlags(codes, `SELECT
		`+cohortLabel+` AS cohort,
		`+sexLabel+` AS sex,
		`+ageGroupLabel+` AS age_group,
		COUNT(*) AS count
	FROM flags f
	JOIN (
		SELECT person_id, gender_concept_id, CAST(? AS INTEGER) - year_of_birth AS age
		FROM person
	) p ON f.person_id = p.person_id
	GROUP BY cohort, sex, age_group
	ORDER BY cohort, sex, age_group`, currentYear)
}

// valuesQuery selects (cohort, value) for non-null values of one measurement.
// limit <= 0 means unlimited.
func valuesQuery(codes []string, measurementID int64, limit int) terminology.Fragment {
	body := `SELECT
		` + cohortLabel + ` AS cohort,
		m.value_as_number
	FROM flags f
	JOIN measurement m ON f.person_id = m.person_id
	WHERE m.measurement_concept_id = ?
	  AND m.value_as_number IS NOT NULL
	ORDER BY m.measurement_id`
	if limit <= 0 {
		return withFlags(codes, body, measurementID)
	}
	return withFlags(codes, body+"\n\tLIMIT ?", measurementID, limit)
}
