package terminology

import (
	"strings"
)

// Fragment is a SQL subquery together with its positional arguments. Fragments
// nest: the args of an inner fragment precede any args the outer query adds
// after it.
type Fragment struct {
	SQL  string
	Args []any
}

// Placeholders returns "?, ?, ..." for n bind parameters.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// StandardConcepts selects the distinct standard concept ids that the source
// concepts with the given codes map to.
func StandardConcepts(codes []string) Fragment {
	if len(codes) == 0 {
		return Fragment{SQL: `SELECT CAST(NULL AS INTEGER) AS concept_id WHERE FALSE`}
	}

	args := make([]any, 0, len(codes)+2)
	args = append(args, MapsToRelationship)
	for _, c := range codes {
		args = append(args, c)
	}
	args = append(args, StandardConceptIndicator)

	return Fragment{
		SQL: `SELECT DISTINCT c2.concept_id
		FROM concept c1
		JOIN concept_relationship cr ON c1.concept_id = cr.concept_id_1
		JOIN concept c2 ON cr.concept_id_2 = c2.concept_id
		WHERE cr.relationship_id = ?
		  AND c1.concept_code IN (` + Placeholders(len(codes)) + `)
		  AND c2.standard_concept = ?`,
		Args: args,
	}
}

// Descendants selects every descendant (including the concept itself, as
// concept_ancestor stores self-links) of the standard concepts the codes map
// to.
func Descendants(codes []string) Fragment {
	if len(codes) == 0 {
		return Fragment{SQL: `SELECT CAST(NULL AS INTEGER) AS descendant_concept_id WHERE FALSE`}
	}

	std := StandardConcepts(codes)
	return Fragment{
		SQL: `SELECT DISTINCT descendant_concept_id
		FROM concept_ancestor
		WHERE ancestor_concept_id IN (` + std.SQL + `)`,
		Args: std.Args,
	}
}
