package cohort

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/cohort/internal/domain/terminology"
)

func TestFlagsSQL_LeftJoinsEveryPerson(t *testing.T) {
	f := flagsSQL([]string{"E11"})
	assert.Contains(t, f.SQL, "FROM person p")
	assert.Contains(t, f.SQL, "LEFT JOIN condition_occurrence co")
	assert.Contains(t, f.SQL, "GROUP BY p.person_id")
	assert.Equal(t, len(f.Args), strings.Count(f.SQL, "?"))
}

func TestAgeSexQuery_BindsYearAfterCodes(t *testing.T) {
	q := ageSexQuery([]string{"E10", "E11"}, 2025)

	require.Equal(t, len(q.Args), strings.Count(q.SQL, "?"))
	assert.Equal(t, []any{terminology.MapsToRelationship, "E10", "E11", terminology.StandardConceptIndicator, 2025}, q.Args)
	assert.Contains(t, q.SQL, "'20–40'")
	assert.Contains(t, q.SQL, "ORDER BY cohort, sex, age_group")
	assert.NotContains(t, q.SQL, "2025", "year must be bound")
}

func TestValuesQuery_Limit(t *testing.T) {
	unlimited := valuesQuery(terminology.DiabetesSourceCodes, terminology.GlucoseConceptID, 0)
	assert.NotContains(t, unlimited.SQL, "LIMIT")
	assert.Equal(t, len(unlimited.Args), strings.Count(unlimited.SQL, "?"))

	limited := valuesQuery(terminology.DiabetesSourceCodes, terminology.GlucoseConceptID, 10)
	assert.Contains(t, limited.SQL, "LIMIT ?")
	assert.Equal(t, 10, limited.Args[len(limited.Args)-1])
	assert.Equal(t, terminology.GlucoseConceptID, limited.Args[len(limited.Args)-2])
}

func TestCountsQuery_EmptyCodes(t *testing.T) {
	q := countsQuery(nil)
	assert.Empty(t, q.Args)
	assert.NotContains(t, q.SQL, "IN ()")
}

func TestRepo_Counts_SQLShape(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WITH flags AS (")).
		WithArgs(terminology.MapsToRelationship, "E11", terminology.StandardConceptIndicator).
		WillReturnRows(sqlmock.NewRows([]string{"total_people", "case_count"}).AddRow(20, 10))

	c, err := NewRepoDuckDB(sqlDB).Counts(context.Background(), []string{"E11"})
	require.NoError(t, err)
	assert.Equal(t, &Counts{TotalPeople: 20, CaseCount: 10, ControlCount: 10}, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Values_GroupsByCohort(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(regexp.QuoteMeta("m.measurement_concept_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"cohort", "value_as_number"}).
			AddRow(CohortDisease, 120.5).
			AddRow(CohortNonDisease, 95.0).
			AddRow(CohortDisease, 130.0))

	groups, err := NewRepoDuckDB(sqlDB).Values(context.Background(), []string{"E11"}, terminology.GlucoseConceptID)
	require.NoError(t, err)
	assert.Equal(t, []float64{120.5, 130.0}, groups[CohortDisease])
	assert.Equal(t, []float64{95.0}, groups[CohortNonDisease])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_AgeSex_QueryError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery("WITH flags AS").WillReturnError(assert.AnError)

	_, err = NewRepoDuckDB(sqlDB).AgeSex(context.Background(), []string{"E11"}, 2025)
	assert.ErrorIs(t, err, assert.AnError)
}
