package campus

import "context"

// PersonalDataResponse is the persdata endpoint payload.
type PersonalDataResponse struct {
	PersData PersonalData `json:"persdata"`
}

// PersonalData carries the student master data fields the client reads.
// The upstream sends more fields than listed here; unknown fields are
// ignored on decode.
type PersonalData struct {
	User      string `json:"user"`
	Name      string `json:"name"`
	FirstName string `json:"vname"`
	// Stg is the short name of the study course, e.g. "IF".
	Stg string `json:"stg"`
	// PoURL points to the examination regulation document; its trailing
	// path segment is the SPO version.
	PoURL     string `json:"po_url"`
	Email     string `json:"email"`
	MatrNr    string `json:"mtknr"`
	LibraryNr string `json:"bibnr"`
	Semester  string `json:"rue_sem"`
}

// Timetable is the stpl endpoint payload.
type Timetable struct {
	Timetable []TimetableEntry `json:"timetable"`
}

// TimetableEntry is one lecture slot of a day.
type TimetableEntry struct {
	Date     string `json:"datum"`
	Start    string `json:"von"`
	End      string `json:"bis"`
	Title    string `json:"fach"`
	Short    string `json:"veranstaltung"`
	Room     string `json:"raum"`
	Lecturer string `json:"dozent"`
	Goal     string `json:"ziel"`
	Contents string `json:"inhalt"`
	Literat  string `json:"literatur"`
	SWS      string `json:"sws"`
	ECTS     string `json:"ectspoints"`
}

// Exam is one entry of the exams endpoint payload.
type Exam struct {
	Title     string `json:"titel"`
	Type      string `json:"pruefungs_art"`
	Date      string `json:"exam_ts"`
	Room      string `json:"exam_rooms"`
	Seat      string `json:"exam_seat"`
	Examiners string `json:"pruefer_namen"`
	Aids      string `json:"hilfsmittel"`
	Notes     string `json:"anmerkung"`
	Enrolled  string `json:"anm_date"`
}

// Grade is one entry of the grades endpoint payload.
type Grade struct {
	Title   string `json:"titel"`
	Grade   string `json:"note"`
	ECTS    string `json:"ects"`
	Tries   string `json:"anrech"`
	ExamNr  string `json:"pon"`
	Faculty string `json:"fwpf"`
}

// Lecturer is one entry of the lecturers endpoints.
type Lecturer struct {
	Title        string `json:"titel"`
	Name         string `json:"name"`
	FirstName    string `json:"vorname"`
	Email        string `json:"email"`
	Room         string `json:"raum"`
	Function     string `json:"funktion"`
	Organisation string `json:"organisation"`
	OfficeHours  string `json:"sprechstunde"`
}

// FreeRoomEntry is one free slot of the freerooms endpoint payload.
type FreeRoomEntry struct {
	Date string `json:"datum"`
	From string `json:"von"`
	To   string `json:"bis"`
	Room string `json:"raum"`
	Type string `json:"typ"`
}

// Reservation is a confirmed library seat booking. The client holds no
// local copy of truth; reservation lists are always re-fetched upstream.
type Reservation struct {
	ReservationID string `json:"reservation_id"`
	Resource      string `json:"resource"`
	ResourceID    string `json:"resource_id"`
	RCategory     string `json:"rcategory"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

// CacheStore is the response cache consulted before network calls for
// cacheable endpoints. It is a pure memoization store: hits are returned
// verbatim, staleness is the caller's responsibility.
// Implementations: memory (default), sqlite, redis.
type CacheStore interface {
	// Get returns the cached payload for key, reporting whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores payload under key, replacing any previous entry.
	Set(ctx context.Context, key string, payload []byte) error

	// Delete removes the entry for key.
	Delete(ctx context.Context, key string) error

	// Purge removes all entries.
	Purge(ctx context.Context) error
}
