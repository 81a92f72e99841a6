package terminology

// Well-known OMOP concept ids used by the built-in catalog and the synthetic
// dataset.
const (
	DiabetesConceptID        int64 = 201826
	DiabetesType2NoCompID    int64 = 4193704
	HypertensionConceptID    int64 = 320128
	GlucoseConceptID         int64 = 3004501
	HemoglobinConceptID      int64 = 3000963
	MapsToRelationship             = "Maps to"
	StandardConceptIndicator       = "S"
)

// DiabetesSourceCodes is the ICD-9/ICD-10 code list that defines diabetes.
var DiabetesSourceCodes = []string{"250", "E08", "E09", "E10", "E11", "E13"}

// Concept is a row of the OMOP concept table.
type Concept struct {
	ConceptID       int64  `json:"concept_id"`
	Name            string `json:"concept_name,omitempty"`
	VocabularyID    string `json:"vocabulary_id,omitempty"`
	Code            string `json:"concept_code"`
	StandardConcept string `json:"standard_concept,omitempty"`
}

// IsStandard reports whether the concept is a standard concept.
func (c *Concept) IsStandard() bool {
	return c.StandardConcept == StandardConceptIndicator
}

// Disease is a named static list of source codes.
type Disease struct {
	Key         string   `json:"key" yaml:"key"`
	Label       string   `json:"label" yaml:"label"`
	SourceCodes []string `json:"source_codes" yaml:"source_codes"`
}

// DiseaseSummary is the dropdown entry returned by GET /diseases.
type DiseaseSummary struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Measurement is a lab value the cohort outcome endpoints accept.
type Measurement struct {
	ConceptID int64  `json:"concept_id" yaml:"concept_id"`
	Key       string `json:"key" yaml:"key"`
	Label     string `json:"label" yaml:"label"`
	Unit      string `json:"unit,omitempty" yaml:"unit"`
}

// ResolvedConceptSet is the materialised result of resolving a disease's
// source codes through 'Maps to' and the concept hierarchy.
type ResolvedConceptSet struct {
	Disease              string   `json:"disease"`
	Label                string   `json:"label"`
	SourceCodes          []string `json:"source_codes"`
	StandardConceptIDs   []int64  `json:"standard_concept_ids"`
	DescendantConceptIDs []int64  `json:"descendant_concept_ids"`
}
