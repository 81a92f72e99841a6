// Package synth seeds a DuckDB database with a small synthetic OMOP dataset:
// a diabetes vocabulary, persons, conditions and lab measurements.
package synth

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/cohort/internal/domain/terminology"
	"github.com/ehr/cohort/internal/platform/db"
)

const (
	GenderMale   int64 = 8507
	GenderFemale int64 = 8532

	// DefaultPersons is the dataset size used when Options.Persons is zero.
	DefaultPersons = 20
)

// YearsOfBirth is the pool person birth years are drawn from.
var YearsOfBirth = []int{1965, 1975, 1985, 1995}

// Options control the generated dataset.
type Options struct {
	Persons int
	Seed    int64
}

// Summary reports how many rows were written per table.
type Summary struct {
	Persons       int `json:"persons"`
	Cases         int `json:"cases"`
	Conditions    int `json:"conditions"`
	Measurements  int `json:"measurements"`
	Concepts      int `json:"concepts"`
	Relationships int `json:"relationships"`
	Ancestors     int `json:"ancestors"`
}

type conceptRow struct {
	id         int64
	name       string
	vocabulary string
	code       string
	standard   any
}

// vocabulary returns the concept rows, 'Maps to' links and ancestor pairs of
// the toy vocabulary. Every diabetes source code maps to the standard
// diabetes concept, which has one standard descendant.
func vocabulary() ([]conceptRow, [][2]int64, [][2]int64) {
	std := terminology.StandardConceptIndicator
	concepts := []conceptRow{
		{terminology.DiabetesConceptID, "Type 2 diabetes mellitus", "SNOMED", "44054006", std},
		{terminology.DiabetesType2NoCompID, "Type 2 diabetes mellitus without complication", "SNOMED", "313436004", std},
		{terminology.HypertensionConceptID, "Essential hypertension", "SNOMED", "59621000", std},
		{terminology.GlucoseConceptID, "Glucose [Mass/volume] in Serum or Plasma", "LOINC", "2345-7", std},
		{terminology.HemoglobinConceptID, "Hemoglobin [Mass/volume] in Blood", "LOINC", "718-7", std},
	}

	var mapsTo [][2]int64
	for _, c := range concepts {
		mapsTo = append(mapsTo, [2]int64{c.id, c.id})
	}

	sourceID := int64(45000001)
	for _, code := range terminology.DiabetesSourceCodes {
		vocab := "ICD10CM"
		if code == "250" {
			vocab = "ICD9CM"
		}
		concepts = append(concepts, conceptRow{sourceID, "Diabetes mellitus (" + code + ")", vocab, code, nil})
		mapsTo = append(mapsTo, [2]int64{sourceID, terminology.DiabetesConceptID})
		sourceID++
	}
	concepts = append(concepts, conceptRow{sourceID, "Essential (primary) hypertension", "ICD10CM", "I10", nil})
	mapsTo = append(mapsTo, [2]int64{sourceID, terminology.HypertensionConceptID})

	ancestors := [][2]int64{
		{terminology.DiabetesConceptID, terminology.DiabetesConceptID},
		{terminology.DiabetesConceptID, terminology.DiabetesType2NoCompID},
		{terminology.DiabetesType2NoCompID, terminology.DiabetesType2NoCompID},
		{terminology.HypertensionConceptID, terminology.HypertensionConceptID},
	}
	return concepts, mapsTo, ancestors
}

// Generator writes the synthetic dataset.
type Generator struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewGenerator creates a generator writing to d.
func NewGenerator(d *sql.DB, logger zerolog.Logger) *Generator {
	return &Generator{db: d, logger: logger}
}

// Generate creates the OMOP tables if needed, clears them, and inserts a fresh
// dataset in a single transaction. The output is deterministic for a given
// seed.
func (g *Generator) Generate(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Persons == 0 {
		opts.Persons = DefaultPersons
	}
	if opts.Persons < 2 {
		return nil, fmt.Errorf("at least 2 persons are required, got %d", opts.Persons)
	}

	if _, err := db.NewMigrator(g.db, db.Migrations()).Up(ctx); err != nil {
		return nil, fmt.Errorf("create omop tables: %w", err)
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"person", "condition_occurrence", "measurement", "concept", "concept_relationship", "concept_ancestor"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return nil, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	sum := &Summary{}
	if err := insertVocabulary(ctx, tx, sum); err != nil {
		return nil, err
	}

	rnd := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)^0x9e3779b97f4a7c15))
	if err := insertClinical(ctx, tx, rnd, opts.Persons, sum); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	g.logger.Info().
		Int("persons", sum.Persons).
		Int("cases", sum.Cases).
		Int("conditions", sum.Conditions).
		Int("measurements", sum.Measurements).
		Msg("synthetic omop dataset generated")
	return sum, nil
}

func insertVocabulary(ctx context.Context, tx *sql.Tx, sum *Summary) error {
	concepts, mapsTo, ancestors := vocabulary()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO concept VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare concept insert: %w", err)
	}
	defer stmt.Close()
	for _, c := range concepts {
		if _, err := stmt.ExecContext(ctx, c.id, c.name, c.vocabulary, c.code, c.standard); err != nil {
			return fmt.Errorf("insert concept %d: %w", c.id, err)
		}
		sum.Concepts++
	}

	for _, r := range mapsTo {
		if _, err := tx.ExecContext(ctx, `INSERT INTO concept_relationship VALUES (?, ?, ?)`,
			r[0], r[1], terminology.MapsToRelationship); err != nil {
			return fmt.Errorf("insert relationship %d->%d: %w", r[0], r[1], err)
		}
		sum.Relationships++
	}

	for _, a := range ancestors {
		if _, err := tx.ExecContext(ctx, `INSERT INTO concept_ancestor VALUES (?, ?)`, a[0], a[1]); err != nil {
			return fmt.Errorf("insert ancestor %d->%d: %w", a[0], a[1], err)
		}
		sum.Ancestors++
	}
	return nil
}

func insertClinical(ctx context.Context, tx *sql.Tx, rnd *rand.Rand, persons int, sum *Summary) error {
	personStmt, err := tx.PrepareContext(ctx, `INSERT INTO person VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare person insert: %w", err)
	}
	defer personStmt.Close()

	condStmt, err := tx.PrepareContext(ctx, `INSERT INTO condition_occurrence VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare condition insert: %w", err)
	}
	defer condStmt.Close()

	measStmt, err := tx.PrepareContext(ctx, `INSERT INTO measurement VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare measurement insert: %w", err)
	}
	defer measStmt.Close()

	conditionDate := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	measurementDates := []time.Time{
		time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC),
	}

	cid, mid := int64(1), int64(1)
	cases := persons / 2
	for i := 0; i < persons; i++ {
		pid := int64(i + 1)
		gender := GenderMale
		if rnd.IntN(2) == 1 {
			gender = GenderFemale
		}
		yob := YearsOfBirth[rnd.IntN(len(YearsOfBirth))]
		if _, err := personStmt.ExecContext(ctx, pid, gender, yob); err != nil {
			return fmt.Errorf("insert person %d: %w", pid, err)
		}
		sum.Persons++

		var condition int64
		switch {
		case i < cases && i%2 == 0:
			condition = terminology.DiabetesConceptID
		case i < cases:
			condition = terminology.DiabetesType2NoCompID
		case i%3 == 0:
			condition = terminology.HypertensionConceptID
		}
		if i < cases {
			sum.Cases++
		}
		if condition != 0 {
			if _, err := condStmt.ExecContext(ctx, cid, pid, condition, conditionDate); err != nil {
				return fmt.Errorf("insert condition for person %d: %w", pid, err)
			}
			cid++
			sum.Conditions++
		}

		for _, d := range measurementDates {
			glucose := 85 + rnd.Float64()*(160-85)
			hemoglobin := 11 + rnd.Float64()*(17-11)
			for _, m := range []struct {
				concept int64
				value   float64
			}{
				{terminology.GlucoseConceptID, glucose},
				{terminology.HemoglobinConceptID, hemoglobin},
			} {
				if _, err := measStmt.ExecContext(ctx, mid, pid, m.concept, m.value, d); err != nil {
					return fmt.Errorf("insert measurement for person %d: %w", pid, err)
				}
				mid++
				sum.Measurements++
			}
		}
	}
	return nil
}

// SeedIfEmpty generates the dataset only when the person table has no rows.
// It reports whether a dataset was generated.
func (g *Generator) SeedIfEmpty(ctx context.Context, opts Options) (bool, error) {
	if _, err := db.NewMigrator(g.db, db.Migrations()).Up(ctx); err != nil {
		return false, fmt.Errorf("create omop tables: %w", err)
	}
	n, err := db.TableRowCount(ctx, g.db, "person")
	if err != nil {
		return false, err
	}
	if n > 0 {
		g.logger.Debug().Int64("persons", n).Msg("database already populated, skipping seed")
		return false, nil
	}
	if _, err := g.Generate(ctx, opts); err != nil {
		return false, err
	}
	return true, nil
}
