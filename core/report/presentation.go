package report

import "github.com/asaidimu/go-cdibase/core/schema"

// InterpretValue maps a status code to the token a presentation format
// assigns to its symbolic name. The code itself is returned when the format
// is nil, the code has no symbolic name, or the format does not map it.
func InterpretValue(code int, format *schema.PresentationFormat) any {
	name, ok := schema.SentinelName(code)
	if !ok {
		return code
	}
	token, ok := format.Token(name)
	if !ok {
		return code
	}
	return token
}
