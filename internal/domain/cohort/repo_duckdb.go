package cohort

import (
	"context"
	"database/sql"
	"fmt"
)

type repoDuckDB struct{ db *sql.DB }

// NewRepoDuckDB returns a Repository over a DuckDB database holding the OMOP
// tables.
func NewRepoDuckDB(db *sql.DB) Repository {
	return &repoDuckDB{db: db}
}

func (r *repoDuckDB) Counts(ctx context.Context, codes []string) (*Counts, error) {
	q := countsQuery(codes)
	var c Counts
	if err := r.db.QueryRowContext(ctx, q.SQL, q.Args...).Scan(&c.TotalPeople, &c.CaseCount); err != nil {
		return nil, fmt.Errorf("count cohort: %w", err)
	}
	c.ControlCount = c.TotalPeople - c.CaseCount
	return &c, nil
}

func (r *repoDuckDB) AgeSex(ctx context.Context, codes []string, currentYear int) ([]AgeSexRow, error) {
	q := ageSexQuery(codes, currentYear)
	rows, err := r.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("age-sex breakdown: %w", err)
	}
	defer rows.Close()

	out := []AgeSexRow{}
	for rows.Next() {
		var row AgeSexRow
		if err := rows.Scan(&row.Cohort, &row.Sex, &row.AgeGroup, &row.Count); err != nil {
			return nil, fmt.Errorf("scan age-sex row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repoDuckDB) Outcomes(ctx context.Context, codes []string, measurementID int64, limit int) ([]OutcomeRow, error) {
	q := valuesQuery(codes, measurementID, limit)
	rows, err := r.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("outcomes: %w", err)
	}
	defer rows.Close()

	out := []OutcomeRow{}
	for rows.Next() {
		var row OutcomeRow
		if err := rows.Scan(&row.Cohort, &row.Value); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repoDuckDB) Values(ctx context.Context, codes []string, measurementID int64) (map[string][]float64, error) {
	q := valuesQuery(codes, measurementID, 0)
	rows, err := r.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("measurement values: %w", err)
	}
	defer rows.Close()

	groups := map[string][]float64{}
	for rows.Next() {
		var cohort string
		var v float64
		if err := rows.Scan(&cohort, &v); err != nil {
			return nil, fmt.Errorf("scan measurement value: %w", err)
		}
		groups[cohort] = append(groups[cohort], v)
	}
	return groups, rows.Err()
}
