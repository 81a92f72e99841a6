package terminology

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// ── Mock Repository ──

type mockConceptRepo struct {
	concepts    map[int64]*Concept
	standard    map[string][]int64
	descendants map[int64][]int64
	err         error
}

func newMockConceptRepo() *mockConceptRepo {
	return &mockConceptRepo{
		concepts: map[int64]*Concept{
			DiabetesConceptID: {ConceptID: DiabetesConceptID, Code: "44054006", StandardConcept: "S"},
			45000005:          {ConceptID: 45000005, Code: "E11", VocabularyID: "ICD10CM"},
		},
		standard: map[string][]int64{
			"E11": {DiabetesConceptID},
			"E10": {DiabetesConceptID},
		},
		descendants: map[int64][]int64{
			DiabetesConceptID: {DiabetesConceptID, DiabetesType2NoCompID},
		},
	}
}

func (m *mockConceptRepo) GetByID(_ context.Context, id int64) (*Concept, error) {
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.concepts[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrConceptNotFound, id)
}

func (m *mockConceptRepo) SearchByCode(_ context.Context, code string, limit, offset int) ([]*Concept, error) {
	var out []*Concept
	for _, c := range m.concepts {
		if c.Code == code {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockConceptRepo) StandardIDs(_ context.Context, codes []string) ([]int64, error) {
	if m.err != nil {
		return nil, m.err
	}
	seen := map[int64]bool{}
	out := []int64{}
	for _, code := range codes {
		for _, id := range m.standard[code] {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func (m *mockConceptRepo) DescendantIDs(ctx context.Context, codes []string) ([]int64, error) {
	std, err := m.StandardIDs(ctx, codes)
	if err != nil {
		return nil, err
	}
	out := []int64{}
	for _, id := range std {
		out = append(out, m.descendants[id]...)
	}
	return out, nil
}

func newTestService() (*Service, *mockConceptRepo) {
	repo := newMockConceptRepo()
	return NewService(DefaultCatalog(), repo), repo
}

func TestService_Resolve(t *testing.T) {
	svc, _ := newTestService()
	set, err := svc.Resolve(context.Background(), "diabetes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Disease != "diabetes" || set.Label != "Diabetes" {
		t.Errorf("unexpected disease fields: %+v", set)
	}
	if len(set.StandardConceptIDs) != 1 || set.StandardConceptIDs[0] != DiabetesConceptID {
		t.Errorf("unexpected standard ids: %v", set.StandardConceptIDs)
	}
	if len(set.DescendantConceptIDs) != 2 {
		t.Errorf("unexpected descendant ids: %v", set.DescendantConceptIDs)
	}
}

func TestService_Resolve_UnknownDisease(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Resolve(context.Background(), "asthma")
	if !errors.Is(err, ErrUnknownDisease) {
		t.Errorf("expected ErrUnknownDisease, got %v", err)
	}
}

func TestService_Resolve_RepoError(t *testing.T) {
	svc, repo := newTestService()
	repo.err = errors.New("connection lost")
	if _, err := svc.Resolve(context.Background(), "diabetes"); err == nil {
		t.Error("expected repository error")
	}
}

func TestService_GetConcept(t *testing.T) {
	svc, _ := newTestService()
	for _, id := range []int64{0, -5} {
		if _, err := svc.GetConcept(context.Background(), id); !errors.Is(err, ErrConceptNotFound) {
			t.Errorf("id %d: expected ErrConceptNotFound, got %v", id, err)
		}
	}
	c, err := svc.GetConcept(context.Background(), DiabetesConceptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsStandard() {
		t.Error("expected standard concept")
	}
}

func TestService_SearchConcepts(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.SearchConcepts(context.Background(), "", 10, 0); err == nil {
		t.Error("expected error for empty code")
	}
	results, err := svc.SearchConcepts(context.Background(), "E11", 0, -5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}
