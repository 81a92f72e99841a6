package terminology

import (
	"context"
	"fmt"
)

// Service exposes the catalog and resolves diseases against the vocabulary.
type Service struct {
	catalog  *Catalog
	concepts ConceptRepository
}

// NewService creates a new terminology service.
func NewService(catalog *Catalog, concepts ConceptRepository) *Service {
	return &Service{catalog: catalog, concepts: concepts}
}

// Catalog returns the service's catalog.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

func (s *Service) ListDiseases() []DiseaseSummary {
	return s.catalog.Diseases()
}

func (s *Service) ListMeasurements() []Measurement {
	return s.catalog.Measurements()
}

// Resolve expands a disease's source codes to standard and descendant
// concept ids.
func (s *Service) Resolve(ctx context.Context, key string) (*ResolvedConceptSet, error) {
	d, err := s.catalog.Disease(key)
	if err != nil {
		return nil, err
	}

	std, err := s.concepts.StandardIDs(ctx, d.SourceCodes)
	if err != nil {
		return nil, err
	}
	desc, err := s.concepts.DescendantIDs(ctx, d.SourceCodes)
	if err != nil {
		return nil, err
	}

	return &ResolvedConceptSet{
		Disease:              d.Key,
		Label:                d.Label,
		SourceCodes:          d.SourceCodes,
		StandardConceptIDs:   std,
		DescendantConceptIDs: desc,
	}, nil
}

// GetConcept looks up a single concept.
func (s *Service) GetConcept(ctx context.Context, id int64) (*Concept, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrConceptNotFound, id)
	}
	return s.concepts.GetByID(ctx, id)
}

// SearchConcepts finds concepts by exact code or dotted child code
// ("E11" also matches "E11.9").
func (s *Service) SearchConcepts(ctx context.Context, code string, limit, offset int) ([]*Concept, error) {
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.concepts.SearchByCode(ctx, code, limit, offset)
}
