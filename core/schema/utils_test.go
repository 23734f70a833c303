package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Standard Words And Gestures", "standardwordsandgestures"},
		{"CDI-WS", "cdi-ws"},
		{"Ages 8/16", "ages8%2F16"},
		{"fullwords&more", "fullwords%26more"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SafeName(tt.input))
		})
	}
}

func TestNormalizeWord(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Dog", "dog"},
		{"  cat* ", "cat"},
		{"*Choo Choo*", "choo choo"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			normalized := NormalizeWord(tt.input)
			assert.Equal(t, tt.expected, normalized)
			assert.Equal(t, normalized, NormalizeWord(normalized))
		})
	}
}

func TestSentinelName(t *testing.T) {
	name, ok := SentinelName(Male)
	assert.True(t, ok)
	assert.Equal(t, "male", name)

	name, ok = SentinelName(NoData)
	assert.True(t, ok)
	assert.Equal(t, "no_data", name)

	_, ok = SentinelName(12345)
	assert.False(t, ok)

	assert.True(t, IsSentinelName("explicit_true"))
	assert.False(t, IsSentinelName("definitely_not"))
}

func TestPresentationFormat_Token(t *testing.T) {
	var nilFormat *PresentationFormat
	_, ok := nilFormat.Token("male")
	assert.False(t, ok)

	format := &PresentationFormat{Details: map[string]string{"male": "M"}}
	token, ok := format.Token("male")
	assert.True(t, ok)
	assert.Equal(t, "M", token)

	_, ok = format.Token("female")
	assert.False(t, ok)
}

func TestCDIFormat_Words(t *testing.T) {
	var nilFormat *CDIFormat
	assert.Nil(t, nilFormat.Words())

	format := &CDIFormat{Categories: []Category{
		{Name: "animals", Words: []string{"dog", "cat"}},
		{Name: "vehicles", Words: []string{"car"}},
	}}
	assert.Equal(t, []string{"dog", "cat", "car"}, format.Words())
}
