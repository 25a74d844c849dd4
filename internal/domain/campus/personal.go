package campus

import "strings"

// facultyShortNames maps each faculty to the short names of its study
// courses, as used in the persdata "stg" field. Mirrors the course list
// published by the university; extend when new courses appear.
var facultyShortNames = map[string][]string{
	"Business School": {
		"BW", "BWDF", "GM", "IHM", "DBM", "AF", "MKT",
	},
	"Elektro- und Informationstechnik": {
		"EIT", "ET", "MET", "EMM", "RE", "EITDF",
	},
	"Informatik": {
		"IF", "AI", "CS", "FD", "INF", "UXD", "CSAI", "WIF",
	},
	"Maschinenbau": {
		"MB", "FZT", "LB", "MBR", "TEP",
	},
	"Wirtschaftsingenieurwesen": {
		"WI", "WIM", "EMB", "TM",
	},
	"Nachhaltige Infrastruktur": {
		"BI", "EEB", "UTG", "FTB",
	},
}

// FacultyFromPersonalData derives the faculty from the study course short
// name by reverse lookup in the faculty table. Returns "" when the field is
// absent or no faculty lists the course; it never fails.
func FacultyFromPersonalData(resp PersonalDataResponse) string {
	stg := resp.PersData.Stg
	if stg == "" {
		return ""
	}
	for faculty, shortNames := range facultyShortNames {
		for _, short := range shortNames {
			if short == stg {
				return faculty
			}
		}
	}
	return ""
}

// SpoFromPersonalData derives the SPO (examination regulation) version from
// the trailing path segment of the po_url field. Returns "" when the field
// is absent; it never fails.
func SpoFromPersonalData(resp PersonalDataResponse) string {
	poURL := resp.PersData.PoURL
	if poURL == "" {
		return ""
	}
	trimmed := strings.TrimRight(poURL, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+1:]
}
