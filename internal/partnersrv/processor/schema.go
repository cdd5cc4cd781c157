package processor

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// classificationSchema constrains the model output before anything is stored.
// Guarantees are kept open-ended: coverage modules vary by risk profile.
const classificationSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["eligible", "reason"],
	"properties": {
		"eligible": {"type": "boolean"},
		"reason": {"type": "string", "minLength": 1},
		"risk_profile": {"type": ["string", "null"]},
		"coverage_modules": {
			"type": "array",
			"items": {"type": "string"}
		},
		"exclusions": {
			"type": "array",
			"items": {"type": "string"}
		},
		"assurmax_caps": {
			"type": ["object", "null"]
		}
	}
}`

var classificationValidator = jsonschema.MustCompileString("classification.json", classificationSchema)

// validateClassification checks a raw model response against the expected
// shape. doc must already be parsed JSON (any).
func validateClassification(doc any) error {
	return classificationValidator.Validate(doc)
}

// stripCodeFences removes markdown code fences some models wrap JSON in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	}
	s = strings.Trim(s, "`")
	return strings.TrimSpace(s)
}
