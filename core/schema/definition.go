// Package schema defines the data model shared by the query compiler, the
// record store and the report engine: snapshot metadata records, per-word
// answers, and the two kinds of user supplied format files.
package schema

// Document is a loosely typed row as returned by the record store before it
// is converted into a SnapshotMetadata.
type Document map[string]any

// SnapshotMetadata is one completed assessment session for one child.
type SnapshotMetadata struct {
	DatabaseID       int64   `json:"database_id" yaml:"database_id"`
	ChildID          string  `json:"child_id" yaml:"child_id"`
	StudyID          string  `json:"study_id" yaml:"study_id"`
	Study            string  `json:"study" yaml:"study"`
	Gender           int     `json:"gender" yaml:"gender"` // MALE, FEMALE or OTHER_GENDER
	Age              float64 `json:"age" yaml:"age"`       // Months, computed externally.
	Birthday         string  `json:"birthday" yaml:"birthday"`
	SessionDate      string  `json:"session_date" yaml:"session_date"`
	SessionNum       int     `json:"session_num" yaml:"session_num"`
	TotalNumSessions int     `json:"total_num_sessions" yaml:"total_num_sessions"`
	WordsSpoken      int     `json:"words_spoken" yaml:"words_spoken"`
	ItemsExcluded    int     `json:"items_excluded" yaml:"items_excluded"`
	Percentile       float64 `json:"percentile" yaml:"percentile"`
	ExtraCategories  int     `json:"extra_categories" yaml:"extra_categories"`
	Revision         int     `json:"revision" yaml:"revision"`
	Languages        string  `json:"languages" yaml:"languages"` // Comma separated.
	NumLanguages     int     `json:"num_languages" yaml:"num_languages"`
	MCDIType         string  `json:"mcdi_type" yaml:"mcdi_type"` // CDI format name, as written or safe-named.
	HardOfHearing    int     `json:"hard_of_hearing" yaml:"hard_of_hearing"`
	Deleted          int     `json:"deleted" yaml:"deleted"`
}

// WordAnswerEntry is one child's answer for one vocabulary item. Value is a
// status code rather than a boolean since formats record more than said/not
// said.
type WordAnswerEntry struct {
	SnapshotID int64  `json:"snapshot_id"`
	Word       string `json:"word"`
	Value      int    `json:"value"`
	Revision   int    `json:"revision"`
}

// FormatMetadata is the stored description of an uploaded format file.
type FormatMetadata struct {
	HumanName string `json:"human_name"`
	SafeName  string `json:"safe_name"`
	Filename  string `json:"filename"`
}

// FormatKind distinguishes the two kinds of uploaded format files.
type FormatKind string

const (
	FormatKindPresentation FormatKind = "presentation" // Sentinel code to token mapping.
	FormatKindCDI          FormatKind = "cdi"          // Category grouped vocabulary listing.
)

// PresentationFormat maps symbolic sentinel names (for example "male" or
// "explicit_true") to the tokens a researcher wants to see in exports.
type PresentationFormat struct {
	FormatMetadata
	Details map[string]string `json:"details"`
}

// Token returns the export token for a symbolic name.
func (p *PresentationFormat) Token(name string) (string, bool) {
	if p == nil || p.Details == nil {
		return "", false
	}
	token, ok := p.Details[name]
	return token, ok
}

// Category is an ordered group of canonical vocabulary words.
type Category struct {
	Name  string   `json:"name" yaml:"name"`
	Words []string `json:"words" yaml:"words"`
}

// CDIFormat is a vocabulary inventory definition. Its categories define the
// canonical column order of exported reports.
type CDIFormat struct {
	FormatMetadata
	Categories []Category     `json:"categories"`
	Options    map[string]any `json:"options,omitempty"` // Scoring options, passed through untouched.
}

// Words flattens the categories into the canonical word order.
func (c *CDIFormat) Words() []string {
	if c == nil {
		return nil
	}
	var words []string
	for _, category := range c.Categories {
		words = append(words, category.Words...)
	}
	return words
}

// Issue represents a validation problem found in an uploaded format file.
type Issue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
	Severity string `json:"severity,omitempty"` // "error" or "warning"
}
