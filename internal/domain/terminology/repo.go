package terminology

import (
	"context"
	"errors"
)

// ErrConceptNotFound is returned when no concept has the requested id.
var ErrConceptNotFound = errors.New("concept not found")

// ConceptRepository reads the OMOP vocabulary tables.
type ConceptRepository interface {
	GetByID(ctx context.Context, id int64) (*Concept, error)
	SearchByCode(ctx context.Context, code string, limit, offset int) ([]*Concept, error)
	// StandardIDs returns the standard concept ids the source codes map to.
	StandardIDs(ctx context.Context, codes []string) ([]int64, error)
	// DescendantIDs returns the descendants of those standard concepts.
	DescendantIDs(ctx context.Context, codes []string) ([]int64, error)
}
