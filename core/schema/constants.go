package schema

// Sentinel codes stored in place of plain values in snapshot and word
// answer records.
const (
	NoData             = -100
	Unknown            = -200
	PossiblyWronglyRec = -300
	EmergencyRec       = -400
	ImpliedFalse       = -500
	ImpliedTrue        = -501
	ExplicitTrue       = 4
	LegacyTrue         = 1
	ExplicitFalse      = 0
	ExplicitNone       = -600
	ExplicitNA         = -700
	ExplicitOther      = -800
	NoExtraCategories  = -900
	ExtraCategories    = -1000
	ElevenPresumedTrue = -3000
)

// Gender codes.
const (
	Male        = -2001
	Female      = -2002
	OtherGender = -2003
)

// Stored values of the boolean-like record flags (hard_of_hearing, deleted).
const (
	FlagFalse = 0
	FlagTrue  = 1
)

// SnapshotsCollection is the default name of the snapshot metadata table.
const SnapshotsCollection = "snapshots"

// sentinelNames is the symbolic name of each code a presentation format may
// remap.
var sentinelNames = map[int]string{
	NoData:             "no_data",
	Unknown:            "unknown",
	PossiblyWronglyRec: "possibly_wrongly_recorded",
	EmergencyRec:       "emergency",
	ImpliedFalse:       "implied_false",
	ImpliedTrue:        "implied_true",
	ExplicitTrue:       "explicit_true",
	ExplicitFalse:      "explicit_false",
	ExplicitNone:       "explicit_none",
	ExplicitNA:         "explicit_na",
	ExplicitOther:      "explicit_other",
	NoExtraCategories:  "no_extra_categories",
	ExtraCategories:    "extra_categories",
	ElevenPresumedTrue: "eleven_presumed_true",
	Male:               "male",
	Female:             "female",
	OtherGender:        "other_gender",
}

// SentinelName returns the symbolic name of a code, if it has one.
func SentinelName(code int) (string, bool) {
	name, ok := sentinelNames[code]
	return name, ok
}

// IsSentinelName reports whether name is the symbolic name of a code.
func IsSentinelName(name string) bool {
	for _, known := range sentinelNames {
		if known == name {
			return true
		}
	}
	return false
}
