package cohort

import "context"

// Repository runs the composed cohort queries. codes is a disease's source
// code list; each call resolves it inside the query.
type Repository interface {
	Counts(ctx context.Context, codes []string) (*Counts, error)
	AgeSex(ctx context.Context, codes []string, currentYear int) ([]AgeSexRow, error)
	Outcomes(ctx context.Context, codes []string, measurementID int64, limit int) ([]OutcomeRow, error)
	Values(ctx context.Context, codes []string, measurementID int64) (map[string][]float64, error)
}
