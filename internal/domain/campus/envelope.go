// Package campus holds the wire types and response classification for the
// THI campus webservice. The upstream API is undocumented; the envelope
// shapes and trigger strings below were observed in production and must be
// kept byte-identical.
package campus

import (
	"encoding/json"
	"strings"
)

// Upstream trigger strings. The webservice signals domain-level "nothing to
// show" conditions as error payload strings rather than empty successes.
// Some are German-language text and may be locale-dependent upstream; they
// are defined here once and referenced nowhere else.
const (
	// SignalQueryNotPossible is sent when the queried data set does not
	// exist for the user (no selected courses, no exam registrations).
	SignalQueryNotPossible = "Query not possible"

	// SignalNoExamData is sent by the exams endpoint when no exams are
	// registered.
	SignalNoExamData = "No exam data available"

	// SignalNoReservationData is sent by the reservations endpoint when the
	// user holds no reservations.
	SignalNoReservationData = "No reservation data"

	// SignalServiceNotAvailable is sent by the reservations endpoint
	// outside library service hours.
	SignalServiceNotAvailable = "Service not available"

	// SignalUnknownError ("unknown error") is, despite its name, the
	// documented response when the user already holds a reservation and
	// asks for further availabilities.
	SignalUnknownError = "Unbekannter Fehler"
)

// sessionInvalidSignals are the payloads that mean the attached session was
// rejected, as opposed to a domain error.
var sessionInvalidSignals = []string{
	"Session is invalid",
	"Session expired",
}

// Envelope is the raw response of the webservice. Two shapes exist in the
// wild: the legacy shape carries the status at the top level, the modern
// shape reports status 0 and nests [statusCode, payload] inside data.
type Envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// OutcomeKind enumerates the classified response categories.
type OutcomeKind int

const (
	// OutcomeSuccess carries the unwrapped payload.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeEmpty means the upstream sent a known "no data" signal.
	OutcomeEmpty
	// OutcomeDomainError means the upstream reported a real failure.
	OutcomeDomainError
	// OutcomeSessionInvalid means the attached session was rejected.
	OutcomeSessionInvalid
)

// Outcome is the normalized result of a webservice response.
type Outcome struct {
	Kind    OutcomeKind
	Payload json.RawMessage // set for OutcomeSuccess
	Status  int             // upstream status code for non-success outcomes
	Message string          // upstream error payload for non-success outcomes
}

// Classify normalizes both envelope shapes into an Outcome. Payload strings
// listed in emptySignals are downgraded from errors to OutcomeEmpty; the
// session-invalid signals always classify as OutcomeSessionInvalid.
func Classify(env Envelope, emptySignals ...string) Outcome {
	status, payload := unwrap(env)

	if status == 0 {
		return Outcome{Kind: OutcomeSuccess, Payload: payload}
	}

	msg := payloadMessage(payload)
	for _, sig := range sessionInvalidSignals {
		if matchesSignal(msg, sig) {
			return Outcome{Kind: OutcomeSessionInvalid, Status: status, Message: msg}
		}
	}
	for _, sig := range emptySignals {
		if matchesSignal(msg, sig) {
			return Outcome{Kind: OutcomeEmpty, Status: status, Message: msg}
		}
	}
	return Outcome{Kind: OutcomeDomainError, Status: status, Message: msg}
}

// Err converts a non-success outcome into the matching error value.
// Returns nil for success and empty outcomes.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeDomainError:
		return &APIError{Status: o.Status, Data: o.Message}
	case OutcomeSessionInvalid:
		// The session error type itself is owned by the session package;
		// callers translate this kind before surfacing it.
		return &APIError{Status: o.Status, Data: o.Message}
	default:
		return nil
	}
}

// unwrap detects the modern envelope and returns the effective status code
// and payload. The modern shape is a two-element array whose first element
// is a number; legacy payloads that happen to be arrays (exam lists, room
// lists) never lead with a bare number.
func unwrap(env Envelope) (int, json.RawMessage) {
	if env.Status != 0 {
		return env.Status, env.Data
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(env.Data, &parts); err != nil || len(parts) != 2 {
		return 0, env.Data
	}
	var code int
	if err := json.Unmarshal(parts[0], &code); err != nil {
		return 0, env.Data
	}
	return code, parts[1]
}

// payloadMessage renders an error payload as a plain string. String payloads
// are unquoted; anything else is passed through as raw JSON text.
func payloadMessage(payload json.RawMessage) string {
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(payload))
}

// matchesSignal compares an upstream message against a trigger string.
// Messages are matched on their prefix: the upstream occasionally appends
// punctuation ("Session is invalid!") to otherwise stable text.
func matchesSignal(msg, signal string) bool {
	return strings.HasPrefix(msg, signal)
}

// IsJSONArray reports whether the payload is a JSON array. The exams
// endpoint sometimes answers with a success status but a non-array payload;
// callers treat that as malformed.
func IsJSONArray(payload json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(payload))
	return strings.HasPrefix(trimmed, "[")
}
