// Package formats stores uploaded presentation and CDI format files. The
// files are YAML documents kept in an uploads directory; their metadata
// rows live in a persistence.FormatStore.
package formats

import (
	"errors"
	"fmt"
	"strings"

	"github.com/asaidimu/go-cdibase/core/schema"
	"github.com/asaidimu/go-cdibase/utils"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFormat is wrapped by every *ValidationError.
var ErrInvalidFormat = errors.New("invalid format file")

// ValidationError lists the issues that made a format file unusable.
type ValidationError struct {
	Kind   schema.FormatKind
	Issues []schema.Issue
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, issue := range e.Issues {
		if issue.Severity != "error" {
			continue
		}
		if issue.Path != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", issue.Path, issue.Message))
		} else {
			msgs = append(msgs, issue.Message)
		}
	}
	return fmt.Sprintf("%s %s format: %s", ErrInvalidFormat, e.Kind, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidFormat }

func decode(kind schema.FormatKind, data []byte) (map[string]any, []schema.Issue, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s format: %w", kind, err)
	}
	valid, issues := schema.NewValidator(kind).Validate(doc)
	if !valid {
		return nil, issues, &ValidationError{Kind: kind, Issues: issues}
	}
	return doc, issues, nil
}

// ParsePresentationFormat decodes a presentation format file: a flat mapping
// of symbolic value names to export tokens.
func ParsePresentationFormat(data []byte, meta schema.FormatMetadata) (*schema.PresentationFormat, error) {
	doc, _, err := decode(schema.FormatKindPresentation, data)
	if err != nil {
		return nil, err
	}
	details := make(map[string]string, len(doc))
	for name, token := range doc {
		details[name] = fmt.Sprint(token)
	}
	return &schema.PresentationFormat{FormatMetadata: meta, Details: details}, nil
}

// ParseCDIFormat decodes a CDI format file. Keys other than "categories"
// are kept as options.
func ParseCDIFormat(data []byte, meta schema.FormatMetadata) (*schema.CDIFormat, error) {
	doc, _, err := decode(schema.FormatKindCDI, data)
	if err != nil {
		return nil, err
	}

	format := &schema.CDIFormat{FormatMetadata: meta}
	for i, item := range doc["categories"].([]any) {
		category, err := utils.MapToStruct[schema.Category](item.(map[string]any))
		if err != nil {
			return nil, fmt.Errorf("category %d: %w", i, err)
		}
		format.Categories = append(format.Categories, category)
	}
	for key, value := range doc {
		if key == "categories" {
			continue
		}
		if format.Options == nil {
			format.Options = make(map[string]any)
		}
		format.Options[key] = value
	}
	return format, nil
}

// Check validates a format file without keeping it. Warnings are returned
// even when the file is usable.
func Check(kind schema.FormatKind, data []byte) ([]schema.Issue, error) {
	_, issues, err := decode(kind, data)
	return issues, err
}
