package terminology

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownDisease is returned for a disease key that is not in the catalog.
	ErrUnknownDisease = errors.New("unknown disease")

	keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

// Catalog holds the diseases and measurements the service knows about, in
// presentation order.
type Catalog struct {
	diseases     []Disease
	measurements []Measurement
}

// catalogFile is the on-disk YAML layout of a concept-sets file.
type catalogFile struct {
	Diseases     []Disease     `yaml:"diseases"`
	Measurements []Measurement `yaml:"measurements"`
}

// DefaultCatalog returns the built-in catalog: diabetes, glucose and
// hemoglobin.
func DefaultCatalog() *Catalog {
	return &Catalog{
		diseases: []Disease{
			{Key: "diabetes", Label: "Diabetes", SourceCodes: append([]string(nil), DiabetesSourceCodes...)},
		},
		measurements: []Measurement{
			{ConceptID: GlucoseConceptID, Key: "glucose", Label: "Glucose", Unit: "mg/dL"},
			{ConceptID: HemoglobinConceptID, Key: "hemoglobin", Label: "Hemoglobin", Unit: "g/dL"},
		},
	}
}

// LoadCatalog returns the built-in catalog extended with the entries from the
// YAML file at path. An entry whose key (or measurement concept id) already
// exists replaces it in place. An empty path yields the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	cat := DefaultCatalog()
	if path == "" {
		return cat, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read concept sets file: %w", err)
	}
	if err := cat.Merge(data); err != nil {
		return nil, fmt.Errorf("concept sets file %s: %w", path, err)
	}
	return cat, nil
}

// Merge parses YAML concept sets and merges them into the catalog.
func (c *Catalog) Merge(data []byte) error {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	for i, d := range f.Diseases {
		if !keyPattern.MatchString(d.Key) {
			return fmt.Errorf("diseases[%d]: invalid key %q", i, d.Key)
		}
		if len(d.SourceCodes) == 0 {
			return fmt.Errorf("diseases[%d] (%s): source_codes is required", i, d.Key)
		}
		if d.Label == "" {
			d.Label = d.Key
		}
		c.putDisease(d)
	}

	for i, m := range f.Measurements {
		if m.ConceptID <= 0 {
			return fmt.Errorf("measurements[%d]: concept_id must be positive", i)
		}
		if m.Key == "" {
			m.Key = fmt.Sprintf("concept-%d", m.ConceptID)
		}
		if m.Label == "" {
			m.Label = m.Key
		}
		c.putMeasurement(m)
	}
	return nil
}

func (c *Catalog) putDisease(d Disease) {
	for i := range c.diseases {
		if c.diseases[i].Key == d.Key {
			c.diseases[i] = d
			return
		}
	}
	c.diseases = append(c.diseases, d)
}

func (c *Catalog) putMeasurement(m Measurement) {
	for i := range c.measurements {
		if c.measurements[i].ConceptID == m.ConceptID {
			c.measurements[i] = m
			return
		}
	}
	c.measurements = append(c.measurements, m)
}

// Diseases returns the dropdown entries in catalog order.
func (c *Catalog) Diseases() []DiseaseSummary {
	out := make([]DiseaseSummary, 0, len(c.diseases))
	for _, d := range c.diseases {
		out = append(out, DiseaseSummary{Key: d.Key, Label: d.Label})
	}
	return out
}

// Disease looks up a disease by key.
func (c *Catalog) Disease(key string) (Disease, error) {
	for _, d := range c.diseases {
		if d.Key == key {
			return d, nil
		}
	}
	return Disease{}, fmt.Errorf("%w: %q", ErrUnknownDisease, key)
}

// Measurements returns the allowed outcome measurements in catalog order.
func (c *Catalog) Measurements() []Measurement {
	return append([]Measurement(nil), c.measurements...)
}

// Measurement looks up an allowed measurement by concept id.
func (c *Catalog) Measurement(conceptID int64) (Measurement, bool) {
	for _, m := range c.measurements {
		if m.ConceptID == conceptID {
			return m, true
		}
	}
	return Measurement{}, false
}
