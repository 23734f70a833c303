// Package schema provides the Validator, which checks decoded format files
// before they are accepted into the uploads directory. Errors make a file
// unusable; warnings flag content that will simply be ignored.
package schema

import (
	"fmt"
	"strings"
)

// Validator checks a decoded format document of one kind. It can be reused
// for multiple validation operations.
type Validator struct {
	kind   FormatKind
	issues []Issue
}

// NewValidator creates a new Validator for the given format kind.
func NewValidator(kind FormatKind) *Validator {
	return &Validator{
		kind:   kind,
		issues: make([]Issue, 0),
	}
}

// Validate checks a decoded document. It returns whether the document is
// usable, and every issue found.
func (v *Validator) Validate(data map[string]any) (bool, []Issue) {
	v.issues = make([]Issue, 0)

	switch v.kind {
	case FormatKindPresentation:
		v.validatePresentation(data)
	case FormatKindCDI:
		v.validateCDI(data)
	default:
		v.addIssue("UNKNOWN_FORMAT_KIND", fmt.Sprintf("Unknown format kind '%s'", v.kind), "", "error")
	}

	valid := true
	for _, issue := range v.issues {
		if issue.Severity == "error" {
			valid = false
			break
		}
	}
	return valid, v.issues
}

// validatePresentation checks a flat mapping of symbolic names to tokens.
func (v *Validator) validatePresentation(data map[string]any) {
	if len(data) == 0 {
		v.addIssue("EMPTY_FORMAT", "Presentation format defines no mappings", "", "error")
		return
	}
	for name, token := range data {
		if !IsSentinelName(name) {
			v.addIssue("UNKNOWN_SYMBOLIC_NAME", fmt.Sprintf("'%s' is not a known value name and will be ignored", name), name, "warning")
		}
		if !v.isScalar(token) {
			v.addIssue("TYPE_MISMATCH", fmt.Sprintf("Expected a scalar token, got %T", token), name, "error")
		}
	}
}

// validateCDI checks the category listing of a CDI format.
func (v *Validator) validateCDI(data map[string]any) {
	raw, exists := data["categories"]
	if !exists {
		v.addIssue("REQUIRED_FIELD_MISSING", "Required field 'categories' is missing", "categories", "error")
		return
	}
	categories, ok := raw.([]any)
	if !ok {
		v.addIssue("TYPE_MISMATCH", fmt.Sprintf("Expected array, got %T", raw), "categories", "error")
		return
	}

	seen := make(map[string]string)
	for i, item := range categories {
		path := fmt.Sprintf("categories[%d]", i)
		category, ok := item.(map[string]any)
		if !ok {
			v.addIssue("TYPE_MISMATCH", fmt.Sprintf("Expected object, got %T", item), path, "error")
			continue
		}
		if name, exists := category["name"]; exists {
			if _, ok := name.(string); !ok {
				v.addIssue("TYPE_MISMATCH", fmt.Sprintf("Expected string, got %T", name), v.buildPath(path, "name"), "error")
			}
		}
		words, ok := category["words"].([]any)
		if !ok {
			v.addIssue("REQUIRED_FIELD_MISSING", "Category must list its words", v.buildPath(path, "words"), "error")
			continue
		}
		for j, word := range words {
			wordPath := fmt.Sprintf("%s[%d]", v.buildPath(path, "words"), j)
			text, ok := word.(string)
			if !ok || strings.TrimSpace(text) == "" {
				v.addIssue("INVALID_WORD", "Words must be non-empty strings", wordPath, "error")
				continue
			}
			key := NormalizeWord(text)
			if first, dup := seen[key]; dup {
				v.addIssue("DUPLICATE_WORD", fmt.Sprintf("Word '%s' already listed at %s", text, first), wordPath, "warning")
				continue
			}
			seen[key] = wordPath
		}
	}
}

// isScalar checks if a value can be written into a CSV cell as is.
func (v *Validator) isScalar(value any) bool {
	switch value.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// buildPath constructs a dot-separated path string for error reporting.
func (v *Validator) buildPath(basePath, fieldName string) string {
	if basePath == "" {
		return fieldName
	}
	return basePath + "." + fieldName
}

// addIssue adds a new validation issue to the validator's list of issues.
func (v *Validator) addIssue(code, message, path, severity string) {
	v.issues = append(v.issues, Issue{
		Code:     code,
		Message:  message,
		Path:     path,
		Severity: severity,
	})
}
