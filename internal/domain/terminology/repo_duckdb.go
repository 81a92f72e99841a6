package terminology

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type conceptRepoDuckDB struct{ db *sql.DB }

// NewConceptRepoDuckDB returns a ConceptRepository over a DuckDB database.
func NewConceptRepoDuckDB(db *sql.DB) ConceptRepository {
	return &conceptRepoDuckDB{db: db}
}

const conceptCols = `concept_id, COALESCE(concept_name, ''), COALESCE(vocabulary_id, ''),
	COALESCE(concept_code, ''), COALESCE(standard_concept, '')`

func scanConcept(row interface{ Scan(...any) error }) (*Concept, error) {
	var c Concept
	err := row.Scan(&c.ConceptID, &c.Name, &c.VocabularyID, &c.Code, &c.StandardConcept)
	return &c, err
}

func (r *conceptRepoDuckDB) GetByID(ctx context.Context, id int64) (*Concept, error) {
	c, err := scanConcept(r.db.QueryRowContext(ctx,
		`SELECT `+conceptCols+` FROM concept WHERE concept_id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrConceptNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get concept %d: %w", id, err)
	}
	return c, nil
}

func (r *conceptRepoDuckDB) SearchByCode(ctx context.Context, code string, limit, offset int) ([]*Concept, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+conceptCols+` FROM concept
		WHERE concept_code = ? OR starts_with(concept_code, ? || '.')
		ORDER BY concept_code, concept_id
		LIMIT ? OFFSET ?`, code, code, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search concepts: %w", err)
	}
	defer rows.Close()

	var out []*Concept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, fmt.Errorf("scan concept: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *conceptRepoDuckDB) StandardIDs(ctx context.Context, codes []string) ([]int64, error) {
	f := StandardConcepts(codes)
	return r.queryIDs(ctx, `SELECT concept_id FROM (`+f.SQL+`) ORDER BY concept_id`, f.Args)
}

func (r *conceptRepoDuckDB) DescendantIDs(ctx context.Context, codes []string) ([]int64, error) {
	f := Descendants(codes)
	return r.queryIDs(ctx, `SELECT descendant_concept_id FROM (`+f.SQL+`) ORDER BY descendant_concept_id`, f.Args)
}

func (r *conceptRepoDuckDB) queryIDs(ctx context.Context, query string, args []any) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve concepts: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan concept id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
