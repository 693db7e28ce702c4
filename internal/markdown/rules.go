package markdown

import "github.com/starford/productos/internal/models"

// fieldKind selects how a metadata value is checked and rendered.
type fieldKind int

const (
	// kindPresent renders the raw scalar whenever the key exists.
	kindPresent fieldKind = iota
	// kindPlain renders the raw scalar when the value is truthy.
	kindPlain
	// kindQuoted wraps the scalar in double quotes without escaping.
	kindQuoted
	// kindEscaped applies Escape to the scalar.
	kindEscaped
	// kindArray renders a flow sequence when the value is an array.
	kindArray
)

// field maps one metadata key to one frontmatter key.
type field struct {
	meta string
	name string
	kind fieldKind
}

// typeRules lists, per entity type, the metadata fields written to the
// frontmatter in order. Other metadata keys are kept in the database only.
var typeRules = map[models.EntityType][]field{
	models.TypeHypothesis: {
		{meta: "confidence", name: "confidence", kind: kindPresent},
	},
	models.TypeExperiment: {
		{meta: "startDate", name: "start_date", kind: kindQuoted},
		{meta: "endDate", name: "end_date", kind: kindQuoted},
		{meta: "outcome", name: "outcome", kind: kindPlain},
		{meta: "metrics", name: "metrics", kind: kindArray},
	},
	models.TypeDecision: {
		{meta: "decisionType", name: "decision_type", kind: kindPlain},
		{meta: "decidedAt", name: "decided_at", kind: kindQuoted},
	},
	models.TypeArtifact: {
		{meta: "artifactType", name: "artifact_type", kind: kindPlain},
		{meta: "source", name: "source", kind: kindEscaped},
	},
}

// render returns the frontmatter line for f, or false when it is omitted.
func (f field) render(meta map[string]any) (string, bool) {
	v, ok := meta[f.meta]
	if !ok {
		return "", false
	}
	switch f.kind {
	case kindPresent:
		return f.name + ": " + scalar(v), true
	case kindArray:
		items, isArray := v.([]any)
		if !isArray {
			return "", false
		}
		out := make([]string, len(items))
		for i, item := range items {
			out[i] = scalar(item)
		}
		return f.name + ": " + FlowArray(out), true
	}
	if !truthy(v) {
		return "", false
	}
	switch f.kind {
	case kindQuoted:
		return f.name + `: "` + scalar(v) + `"`, true
	case kindEscaped:
		return f.name + ": " + Escape(scalar(v)), true
	default:
		return f.name + ": " + scalar(v), true
	}
}
