package terminology_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/cohort/internal/domain/terminology"
	"github.com/ehr/cohort/internal/platform/db"
	"github.com/ehr/cohort/internal/platform/synth"
)

func seededDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	d, err := db.Open(ctx, ":memory:", 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	_, err = synth.NewGenerator(d, zerolog.Nop()).Generate(ctx, synth.Options{Seed: 42})
	require.NoError(t, err)
	return d
}

func TestConceptRepoDuckDB_Resolve(t *testing.T) {
	repo := terminology.NewConceptRepoDuckDB(seededDB(t))
	ctx := context.Background()

	std, err := repo.StandardIDs(ctx, terminology.DiabetesSourceCodes)
	require.NoError(t, err)
	assert.Equal(t, []int64{terminology.DiabetesConceptID}, std)

	desc, err := repo.DescendantIDs(ctx, terminology.DiabetesSourceCodes)
	require.NoError(t, err)
	assert.Equal(t, []int64{terminology.DiabetesConceptID, terminology.DiabetesType2NoCompID}, desc)
}

func TestConceptRepoDuckDB_ResolveSingleCode(t *testing.T) {
	repo := terminology.NewConceptRepoDuckDB(seededDB(t))

	std, err := repo.StandardIDs(context.Background(), []string{"I10"})
	require.NoError(t, err)
	assert.Equal(t, []int64{terminology.HypertensionConceptID}, std)
}

func TestConceptRepoDuckDB_ResolveUnmappedCodes(t *testing.T) {
	repo := terminology.NewConceptRepoDuckDB(seededDB(t))
	ctx := context.Background()

	// A standard concept's own code never matches: only source codes map.
	std, err := repo.StandardIDs(ctx, []string{"44054006-not-a-code", "Z99"})
	require.NoError(t, err)
	assert.Empty(t, std)

	desc, err := repo.DescendantIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, desc)
}

func TestConceptRepoDuckDB_GetByID(t *testing.T) {
	repo := terminology.NewConceptRepoDuckDB(seededDB(t))
	ctx := context.Background()

	c, err := repo.GetByID(ctx, terminology.GlucoseConceptID)
	require.NoError(t, err)
	assert.Equal(t, "LOINC", c.VocabularyID)
	assert.Equal(t, "2345-7", c.Code)
	assert.True(t, c.IsStandard())

	_, err = repo.GetByID(ctx, 1)
	assert.ErrorIs(t, err, terminology.ErrConceptNotFound)
}

func TestConceptRepoDuckDB_SearchByCode(t *testing.T) {
	repo := terminology.NewConceptRepoDuckDB(seededDB(t))

	results, err := repo.SearchByCode(context.Background(), "E11", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ICD10CM", results[0].VocabularyID)
	assert.False(t, results[0].IsStandard())
}

func TestConceptRepoDuckDB_SearchByCode_LiteralMatch(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()
	_, err := db.ExecContext(ctx, `INSERT INTO concept VALUES
		(99000001, 'Type 2 diabetes without complications', 'ICD10CM', 'E11.9', NULL)`)
	require.NoError(t, err)
	repo := terminology.NewConceptRepoDuckDB(db)

	results, err := repo.SearchByCode(ctx, "E11", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "E11", results[0].Code)
	assert.Equal(t, "E11.9", results[1].Code)

	for _, pattern := range []string{"E1_", "E%", "E1_.9", "%"} {
		results, err := repo.SearchByCode(ctx, pattern, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, results, "pattern %q", pattern)
	}
}
