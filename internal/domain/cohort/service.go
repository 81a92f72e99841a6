package cohort

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ehr/cohort/internal/domain/terminology"
)

// Catalog is the part of the terminology catalog the cohort service needs.
type Catalog interface {
	Disease(key string) (terminology.Disease, error)
	Measurement(conceptID int64) (terminology.Measurement, bool)
}

// Service computes cohort statistics for catalog diseases.
type Service struct {
	catalog Catalog
	repo    Repository
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for age binning.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new cohort service.
func NewService(catalog Catalog, repo Repository, opts ...Option) *Service {
	s := &Service{catalog: catalog, repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Patients(ctx context.Context, disease string) (*Counts, error) {
	d, err := s.catalog.Disease(disease)
	if err != nil {
		return nil, err
	}
	return s.repo.Counts(ctx, d.SourceCodes)
}

func (s *Service) AgeSex(ctx context.Context, disease string) ([]AgeSexRow, error) {
	d, err := s.catalog.Disease(disease)
	if err != nil {
		return nil, err
	}
	return s.repo.AgeSex(ctx, d.SourceCodes, s.now().Year())
}

// Outcomes returns up to limit labelled values of a catalog measurement.
// Measurements outside the catalog yield no rows.
func (s *Service) Outcomes(ctx context.Context, disease string, measurementID int64, limit int) ([]OutcomeRow, error) {
	d, err := s.catalog.Disease(disease)
	if err != nil {
		return nil, err
	}
	if _, ok := s.catalog.Measurement(measurementID); !ok {
		return []OutcomeRow{}, nil
	}
	return s.repo.Outcomes(ctx, d.SourceCodes, measurementID, limit)
}

// SummaryStats summarises all non-null values of a measurement per cohort.
func (s *Service) SummaryStats(ctx context.Context, disease string, measurementID int64) (map[string]GroupStats, error) {
	d, err := s.catalog.Disease(disease)
	if err != nil {
		return nil, err
	}
	groups, err := s.repo.Values(ctx, d.SourceCodes, measurementID)
	if err != nil {
		return nil, err
	}
	return SummarizeGroups(groups), nil
}

// Overview runs counts, age-sex and summary statistics concurrently.
func (s *Service) Overview(ctx context.Context, disease string, measurementID int64) (*Overview, error) {
	d, err := s.catalog.Disease(disease)
	if err != nil {
		return nil, err
	}
	year := s.now().Year()

	ov := &Overview{Disease: d.Key, Label: d.Label, MeasurementID: measurementID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.repo.Counts(gctx, d.SourceCodes)
		ov.Counts = c
		return err
	})
	g.Go(func() error {
		rows, err := s.repo.AgeSex(gctx, d.SourceCodes, year)
		ov.AgeSex = rows
		return err
	})
	g.Go(func() error {
		groups, err := s.repo.Values(gctx, d.SourceCodes, measurementID)
		if err != nil {
			return err
		}
		ov.SummaryStats = SummarizeGroups(groups)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ov, nil
}
