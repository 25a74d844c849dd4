package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/neuland-ingolstadt/campus-client/internal/adapter/outbound/thi"
	"github.com/neuland-ingolstadt/campus-client/internal/domain/campus"
	"github.com/neuland-ingolstadt/campus-client/internal/domain/library"
	"github.com/neuland-ingolstadt/campus-client/internal/domain/session"
	"github.com/neuland-ingolstadt/campus-client/internal/metrics"
)

const (
	serviceApp = "thiapp"

	methodPersData          = "persdata"
	methodTimetable         = "stpl"
	methodExams             = "exams"
	methodGrades            = "grades"
	methodFreeRooms         = "freerooms"
	methodPersonalLecturers = "stpllecturers"
	methodLecturers         = "lecturers"
	methodReservations      = "reservations"
)

// Reservation sub-commands of the thiapp/reservations method.
const (
	cmdGetReservations   = "getreservations"
	cmdGetAvailabilities = "getavailabilities"
	cmdNewReservation    = "new"
	cmdDeleteReservation = "del"

	// libraryCategory selects the library reading rooms resource category.
	libraryCategory = "1"
)

// Fixed cache keys of the constant-parameter endpoints.
const (
	cacheKeyPersonalData      = "personalData"
	cacheKeyExams             = "exams"
	cacheKeyGrades            = "grades"
	cacheKeyPersonalLecturers = "personalLecturers"
)

// cacheDateLayout renders dates inside cache keys. The layout matches the
// rendering of earlier client generations ("Wed Aug 05 2026") so persisted
// caches stay compatible across upgrades.
const cacheDateLayout = "Mon Jan 02 2006"

// CampusService is the authenticated API client. It exposes one typed
// method per upstream capability and hides session attachment, envelope
// normalization, caching and upstream quirk handling.
//
// The service holds no global state: the session provider and cache store
// are injected, the singleflight group only tracks in-flight calls.
type CampusService struct {
	transport *thi.Transport
	sessions  session.Provider
	cache     campus.CacheStore
	logger    *slog.Logger
	metrics   *metrics.Metrics

	// flight coalesces concurrent cache misses on the same key so a burst
	// of identical queries reaches the network once.
	flight singleflight.Group
}

// CampusOption is a functional option for configuring a CampusService.
type CampusOption func(*CampusService)

// WithCampusLogger sets the structured logger.
func WithCampusLogger(logger *slog.Logger) CampusOption {
	return func(s *CampusService) {
		s.logger = logger
	}
}

// WithCampusMetrics enables metrics recording.
func WithCampusMetrics(m *metrics.Metrics) CampusOption {
	return func(s *CampusService) {
		s.metrics = m
	}
}

// NewCampusService creates the authenticated client.
func NewCampusService(transport *thi.Transport, sessions session.Provider, cache campus.CacheStore, opts ...CampusOption) *CampusService {
	s := &CampusService{
		transport: transport,
		sessions:  sessions,
		cache:     cache,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// callResult is the outcome of an authenticated call after quirk handling.
type callResult struct {
	payload json.RawMessage
	// empty is set when the upstream sent a known "no data" signal; the
	// capability method translates it into its empty collection.
	empty bool
}

// call performs one session-wrapped webservice call. On a rejected session
// the provider mints a new one and the call is retried exactly once; a
// second rejection surfaces as session.ErrInvalid. Payload strings listed
// in emptySignals are absorbed into an empty result instead of an error.
func (s *CampusService) call(ctx context.Context, req thi.Request, emptySignals ...string) (callResult, error) {
	for attempt := 0; ; attempt++ {
		token, err := s.sessions.Session(ctx)
		if err != nil {
			return callResult{}, err
		}

		start := time.Now()
		env, err := s.transport.Do(ctx, req.WithParam("session", token))
		if s.metrics != nil {
			s.metrics.RequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
		}
		if err != nil {
			s.record(req.Method, "error")
			return callResult{}, err
		}

		out := campus.Classify(env, emptySignals...)
		switch out.Kind {
		case campus.OutcomeSuccess:
			s.record(req.Method, "ok")
			return callResult{payload: out.Payload}, nil

		case campus.OutcomeEmpty:
			s.record(req.Method, "empty")
			return callResult{empty: true}, nil

		case campus.OutcomeSessionInvalid:
			if attempt > 0 {
				s.record(req.Method, "error")
				return callResult{}, fmt.Errorf("%w: %s", session.ErrInvalid, out.Message)
			}
			s.logger.Debug("session rejected, refreshing", "method", req.Method)
			if _, err := s.sessions.Refresh(ctx); err != nil {
				s.record(req.Method, "error")
				return callResult{}, err
			}
			continue

		default:
			s.record(req.Method, "error")
			return callResult{}, &campus.APIError{Status: out.Status, Data: out.Message}
		}
	}
}

// cachedCall wraps call with memoization under the given cache key. A hit
// is returned verbatim without network I/O; concurrent misses on the same
// key share a single upstream call. Empty results are not cached, matching
// the observed behavior that only successful payloads are memoized.
func (s *CampusService) cachedCall(ctx context.Context, key string, req thi.Request, emptySignals ...string) (callResult, error) {
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", "key", key, "error", err)
	} else if ok {
		if s.metrics != nil {
			s.metrics.CacheHitsTotal.Inc()
		}
		return callResult{payload: payload}, nil
	}
	if s.metrics != nil {
		s.metrics.CacheMissesTotal.Inc()
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		res, err := s.call(ctx, req, emptySignals...)
		if err != nil {
			return callResult{}, err
		}
		if !res.empty {
			if err := s.cache.Set(ctx, key, res.payload); err != nil {
				s.logger.Warn("cache write failed", "key", key, "error", err)
			}
		}
		return res, nil
	})
	if err != nil {
		return callResult{}, err
	}
	return v.(callResult), nil
}

func (s *CampusService) record(method, status string) {
	if s.metrics != nil {
		s.metrics.RequestsTotal.WithLabelValues(method, status).Inc()
	}
}

// FlushCache drops all cached responses, e.g. after logout.
func (s *CampusService) FlushCache(ctx context.Context) error {
	return s.cache.Purge(ctx)
}

// GetPersonalData returns the student master data.
func (s *CampusService) GetPersonalData(ctx context.Context) (campus.PersonalDataResponse, error) {
	var resp campus.PersonalDataResponse
	res, err := s.cachedCall(ctx, cacheKeyPersonalData, thi.Request{
		Service: serviceApp,
		Method:  methodPersData,
	})
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(res.payload, &resp); err != nil {
		return resp, fmt.Errorf("decode personal data: %w", err)
	}
	return resp, nil
}

// GetFaculty derives the student's faculty from the personal data. Returns
// "" when the study course is absent or unknown; this is not an error.
func (s *CampusService) GetFaculty(ctx context.Context) (string, error) {
	resp, err := s.GetPersonalData(ctx)
	if err != nil {
		return "", err
	}
	return campus.FacultyFromPersonalData(resp), nil
}

// GetSpoName derives the SPO version from the personal data. Returns ""
// when the regulation URL is absent; this is not an error.
func (s *CampusService) GetSpoName(ctx context.Context) (string, error) {
	resp, err := s.GetPersonalData(ctx)
	if err != nil {
		return "", err
	}
	return campus.SpoFromPersonalData(resp), nil
}

// GetTimetable returns the timetable for one day. A user without selected
// courses gets an empty timetable, not an error: the upstream reports that
// condition as "Query not possible".
func (s *CampusService) GetTimetable(ctx context.Context, date time.Time, detailed bool) (campus.Timetable, error) {
	key := fmt.Sprintf("getTimetable-%s-%t", date.Format(cacheDateLayout), detailed)

	details := "0"
	if detailed {
		details = "1"
	}
	req := thi.Request{
		Service: serviceApp,
		Method:  methodTimetable,
		Params: map[string]string{
			"day":     fmt.Sprintf("%d", date.Day()),
			"month":   fmt.Sprintf("%d", int(date.Month())),
			"year":    fmt.Sprintf("%d", date.Year()),
			"details": details,
		},
	}

	res, err := s.cachedCall(ctx, key, req, campus.SignalQueryNotPossible)
	if err != nil {
		return campus.Timetable{}, err
	}
	if res.empty {
		return campus.Timetable{Timetable: []campus.TimetableEntry{}}, nil
	}

	var timetable campus.Timetable
	if err := json.Unmarshal(res.payload, &timetable); err != nil {
		return campus.Timetable{}, fmt.Errorf("decode timetable: %w", err)
	}
	return timetable, nil
}

// GetExams returns the registered exams. "No exam data available", "Query
// not possible" and malformed non-array payloads all mean no exams; any
// other failure propagates.
func (s *CampusService) GetExams(ctx context.Context) ([]campus.Exam, error) {
	res, err := s.cachedCall(ctx, cacheKeyExams, thi.Request{
		Service: serviceApp,
		Method:  methodExams,
	}, campus.SignalNoExamData, campus.SignalQueryNotPossible)
	if err != nil {
		return nil, err
	}
	if res.empty {
		return []campus.Exam{}, nil
	}

	// A successful non-array payload is malformed; the upstream sends it
	// in the same "no exams" situations as the signal strings.
	if !campus.IsJSONArray(res.payload) {
		return []campus.Exam{}, nil
	}

	var exams []campus.Exam
	if err := json.Unmarshal(res.payload, &exams); err != nil {
		return nil, fmt.Errorf("decode exams: %w", err)
	}
	return exams, nil
}

// GetGrades returns the grade list.
func (s *CampusService) GetGrades(ctx context.Context) ([]campus.Grade, error) {
	res, err := s.cachedCall(ctx, cacheKeyGrades, thi.Request{
		Service: serviceApp,
		Method:  methodGrades,
	})
	if err != nil {
		return nil, err
	}

	var grades []campus.Grade
	if err := json.Unmarshal(res.payload, &grades); err != nil {
		return nil, fmt.Errorf("decode grades: %w", err)
	}
	return grades, nil
}

// GetFreeRooms returns the free rooms for one day.
func (s *CampusService) GetFreeRooms(ctx context.Context, date time.Time) ([]campus.FreeRoomEntry, error) {
	key := fmt.Sprintf("getFreeRooms-%s", date.Format(cacheDateLayout))
	req := thi.Request{
		Service: serviceApp,
		Method:  methodFreeRooms,
		Params: map[string]string{
			"day":   fmt.Sprintf("%d", date.Day()),
			"month": fmt.Sprintf("%d", int(date.Month())),
			"year":  fmt.Sprintf("%d", date.Year()),
		},
	}

	res, err := s.cachedCall(ctx, key, req)
	if err != nil {
		return nil, err
	}

	var rooms []campus.FreeRoomEntry
	if err := json.Unmarshal(res.payload, &rooms); err != nil {
		return nil, fmt.Errorf("decode free rooms: %w", err)
	}
	return rooms, nil
}

// GetPersonalLecturers returns the lecturers of the user's own courses.
func (s *CampusService) GetPersonalLecturers(ctx context.Context) ([]campus.Lecturer, error) {
	res, err := s.cachedCall(ctx, cacheKeyPersonalLecturers, thi.Request{
		Service: serviceApp,
		Method:  methodPersonalLecturers,
	})
	if err != nil {
		return nil, err
	}

	var lecturers []campus.Lecturer
	if err := json.Unmarshal(res.payload, &lecturers); err != nil {
		return nil, fmt.Errorf("decode lecturers: %w", err)
	}
	return lecturers, nil
}

// GetLecturers returns all lecturers whose names fall into the given
// character range, e.g. ("a", "f").
func (s *CampusService) GetLecturers(ctx context.Context, from, to string) ([]campus.Lecturer, error) {
	key := fmt.Sprintf("getLecturers-%s-%s", from, to)
	req := thi.Request{
		Service: serviceApp,
		Method:  methodLecturers,
		Params: map[string]string{
			"from": from,
			"to":   to,
		},
	}

	res, err := s.cachedCall(ctx, key, req)
	if err != nil {
		return nil, err
	}

	var lecturers []campus.Lecturer
	if err := json.Unmarshal(res.payload, &lecturers); err != nil {
		return nil, fmt.Errorf("decode lecturers: %w", err)
	}
	return lecturers, nil
}

// GetLibraryReservations returns the user's current seat reservations.
// Always live, never cached: reservation truth is upstream-only. "No
// reservation data" and "Service not available" mean no reservations.
func (s *CampusService) GetLibraryReservations(ctx context.Context) ([]campus.Reservation, error) {
	req := thi.Request{
		Service: serviceApp,
		Method:  methodReservations,
		Params: map[string]string{
			"type": libraryCategory,
			"cmd":  cmdGetReservations,
		},
	}

	res, err := s.call(ctx, req, campus.SignalNoReservationData, campus.SignalServiceNotAvailable)
	if err != nil {
		return nil, err
	}
	if res.empty {
		return []campus.Reservation{}, nil
	}

	var reservations []campus.Reservation
	if err := json.Unmarshal(res.payload, &reservations); err != nil {
		return nil, fmt.Errorf("decode reservations: %w", err)
	}
	return reservations, nil
}

// GetAvailableLibrarySeats returns the bookable time slots. Never cached.
// The upstream answers "Unbekannter Fehler" when the user already holds a
// reservation and cannot make another; that is an empty result here.
func (s *CampusService) GetAvailableLibrarySeats(ctx context.Context) ([]library.AvailableRoomItem, error) {
	req := thi.Request{
		Service: serviceApp,
		Method:  methodReservations,
		Params: map[string]string{
			"type": libraryCategory,
			"cmd":  cmdGetAvailabilities,
		},
	}

	res, err := s.call(ctx, req, campus.SignalUnknownError)
	if err != nil {
		return nil, err
	}
	if res.empty {
		return []library.AvailableRoomItem{}, nil
	}

	var items []library.AvailableRoomItem
	if err := json.Unmarshal(res.payload, &items); err != nil {
		return nil, fmt.Errorf("decode availabilities: %w", err)
	}
	return items, nil
}

// AddLibraryReservation books a seat and returns the new reservation id.
// Mutating, never cached; callers must guard against duplicate submission,
// the upstream has no idempotency key.
func (s *CampusService) AddLibraryReservation(ctx context.Context, booking library.ReservationRequest) (string, error) {
	data, err := json.Marshal(booking)
	if err != nil {
		return "", fmt.Errorf("encode reservation request: %w", err)
	}

	req := thi.Request{
		Service: serviceApp,
		Method:  methodReservations,
		Params: map[string]string{
			"type": libraryCategory,
			"cmd":  cmdNewReservation,
			"data": string(data),
		},
	}

	res, err := s.call(ctx, req)
	if err != nil {
		return "", err
	}

	id, err := decodeReservationID(res.payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RemoveLibraryReservation cancels a reservation. Deletion is idempotent:
// the "no reservation data" and "service not available" signals mean the
// reservation is already gone and count as success.
func (s *CampusService) RemoveLibraryReservation(ctx context.Context, reservationID string) error {
	req := thi.Request{
		Service: serviceApp,
		Method:  methodReservations,
		Params: map[string]string{
			"type": libraryCategory,
			"cmd":  cmdDeleteReservation,
			"data": reservationID,
		},
	}

	_, err := s.call(ctx, req, campus.SignalNoReservationData, campus.SignalServiceNotAvailable)
	return err
}

// decodeReservationID extracts the reservation id from a booking response.
// Observed shapes: a bare string, a bare number, or a one-element array of
// either.
func decodeReservationID(payload json.RawMessage) (string, error) {
	element := payload

	var parts []json.RawMessage
	if err := json.Unmarshal(payload, &parts); err == nil {
		if len(parts) == 0 {
			return "", fmt.Errorf("booking response: empty payload")
		}
		element = parts[0]
	}

	var id string
	if err := json.Unmarshal(element, &id); err == nil && id != "" {
		return id, nil
	}
	var num json.Number
	if err := json.Unmarshal(element, &num); err == nil && num.String() != "" {
		return num.String(), nil
	}
	return "", fmt.Errorf("booking response: unrecognized payload shape")
}
