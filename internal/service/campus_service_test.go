package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/neuland-ingolstadt/campus-client/internal/adapter/outbound/memory"
	"github.com/neuland-ingolstadt/campus-client/internal/adapter/outbound/thi"
	"github.com/neuland-ingolstadt/campus-client/internal/domain/campus"
	"github.com/neuland-ingolstadt/campus-client/internal/domain/library"
	"github.com/neuland-ingolstadt/campus-client/internal/domain/session"
	"github.com/neuland-ingolstadt/campus-client/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUpstream emulates the single-endpoint RPC dialect of the webservice.
// Handlers are keyed by "service/method" (plus "/cmd" for reservation calls)
// and return the envelope to encode; calls are counted per key.
type fakeUpstream struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	calls    map[string]int
	handlers map[string]func(form url.Values) any
	delay    time.Duration
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{
		t:        t,
		calls:    make(map[string]int),
		handlers: make(map[string]func(form url.Values) any),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func upstreamKey(form url.Values) string {
	key := form.Get("service") + "/" + form.Get("method")
	if cmd := form.Get("cmd"); cmd != "" {
		key += "/" + cmd
	}
	return key
}

func (f *fakeUpstream) handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		f.t.Errorf("parse form: %v", err)
		return
	}
	key := upstreamKey(r.PostForm)

	f.mu.Lock()
	f.calls[key]++
	handler := f.handlers[key]
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if handler == nil {
		f.t.Errorf("unexpected upstream call %q", key)
		json.NewEncoder(w).Encode(legacy(99, "no handler"))
		return
	}
	if err := json.NewEncoder(w).Encode(handler(r.PostForm)); err != nil {
		f.t.Errorf("encode response: %v", err)
	}
}

func (f *fakeUpstream) on(key string, handler func(form url.Values) any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[key] = handler
}

// respond registers a fixed response for key.
func (f *fakeUpstream) respond(key string, resp any) {
	f.on(key, func(url.Values) any { return resp })
}

func (f *fakeUpstream) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeUpstream) setDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// legacy builds the legacy envelope shape {status, data}.
func legacy(status int, data any) map[string]any {
	return map[string]any{"status": status, "data": data}
}

// modern builds the modern envelope shape {status:0, data:[code, payload]}.
func modern(code int, payload any) map[string]any {
	return map[string]any{"status": 0, "data": []any{code, payload}}
}

// stubProvider is a controllable session.Provider.
type stubProvider struct {
	mu         sync.Mutex
	token      string
	sessionErr error
	refreshTo  string
	refreshErr error
	refreshes  int
}

func (p *stubProvider) Session(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessionErr != nil {
		return "", p.sessionErr
	}
	if p.token == "" {
		return "", session.ErrNoSession
	}
	return p.token, nil
}

func (p *stubProvider) Refresh(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes++
	if p.refreshErr != nil {
		return "", p.refreshErr
	}
	p.token = p.refreshTo
	return p.token, nil
}

func (p *stubProvider) Invalidate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	return nil
}

func (p *stubProvider) refreshCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshes
}

func newTestCampus(t *testing.T, up *fakeUpstream, provider session.Provider) (*CampusService, *memory.Cache) {
	t.Helper()
	transport := thi.New(up.server.URL,
		thi.WithHTTPClient(up.server.Client()),
		thi.WithLogger(discardLogger()),
	)
	cache := memory.NewCache()
	svc := NewCampusService(transport, provider, cache, WithCampusLogger(discardLogger()))
	return svc, cache
}

func TestCachedEndpointHitsNetworkOnce(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	up.respond("thiapp/persdata", legacy(0, map[string]any{
		"persdata": map[string]any{"name": "Muster", "stg": "IF"},
	}))

	svc, _ := newTestCampus(t, up, &stubProvider{token: "tok"})

	first, err := svc.GetPersonalData(ctx)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.GetPersonalData(ctx)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if got := up.count("thiapp/persdata"); got != 1 {
		t.Errorf("expected 1 upstream call, got %d", got)
	}
	if first.PersData.Name != "Muster" || second.PersData.Name != "Muster" {
		t.Errorf("unexpected payloads: %+v, %+v", first, second)
	}
}

func TestFacultyAndSpoShareCachedPersonalData(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	up.respond("thiapp/persdata", legacy(0, map[string]any{
		"persdata": map[string]any{
			"stg":    "IF",
			"po_url": "https://www.thi.de/spo/SPO_IF_2021/",
		},
	}))

	svc, _ := newTestCampus(t, up, &stubProvider{token: "tok"})

	faculty, err := svc.GetFaculty(ctx)
	if err != nil {
		t.Fatalf("faculty: %v", err)
	}
	spo, err := svc.GetSpoName(ctx)
	if err != nil {
		t.Fatalf("spo: %v", err)
	}

	if faculty != "Informatik" {
		t.Errorf("expected faculty Informatik, got %q", faculty)
	}
	if spo != "SPO_IF_2021" {
		t.Errorf("expected spo SPO_IF_2021, got %q", spo)
	}
	if got := up.count("thiapp/persdata"); got != 1 {
		t.Errorf("expected 1 upstream call, got %d", got)
	}
}

func TestReservationsNeverCached(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	up.respond("thiapp/reservations/getreservations", legacy(0, []map[string]any{
		{"reservation_id": "100", "resource": "Lesesaal"},
	}))

	svc, cache := newTestCampus(t, up, &stubProvider{token: "tok"})

	for i := 0; i < 2; i++ {
		reservations, err := svc.GetLibraryReservations(ctx)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if len(reservations) != 1 || reservations[0].ReservationID != "100" {
			t.Errorf("call %d: unexpected reservations %+v", i, reservations)
		}
	}

	if got := up.count("thiapp/reservations/getreservations"); got != 2 {
		t.Errorf("expected 2 upstream calls, got %d", got)
	}
	if cache.Size() != 0 {
		t.Errorf("reservation responses must not be cached, found %d entries", cache.Size())
	}
}

func TestTimetableQueryNotPossibleIsEmpty(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	up.respond("thiapp/stpl", legacy(1, "Query not possible"))

	svc, cache := newTestCampus(t, up, &stubProvider{token: "tok"})

	timetable, err := svc.GetTimetable(ctx, time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local), false)
	if err != nil {
		t.Fatalf("expected empty timetable, got error %v", err)
	}
	if timetable.Timetable == nil {
		t.Fatal("expected non-nil empty slice")
	}
	if len(timetable.Timetable) != 0 {
		t.Errorf("expected empty timetable, got %d entries", len(timetable.Timetable))
	}
	if cache.Size() != 0 {
		t.Error("empty results must not be cached")
	}
}

func TestTimetableSendsDateParams(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	var gotForm url.Values
	up.on("thiapp/stpl", func(form url.Values) any {
		gotForm = form
		return legacy(0, map[string]any{"timetable": []any{}})
	})

	svc, _ := newTestCampus(t, up, &stubProvider{token: "tok"})

	date := time.Date(2026, 8, 5, 0, 0, 0, 0, time.Local)
	if _, err := svc.GetTimetable(ctx, date, true); err != nil {
		t.Fatalf("timetable: %v", err)
	}

	for key, want := range map[string]string{
		"day":     "5",
		"month":   "8",
		"year":    "2026",
		"details": "1",
		"session": "tok",
	} {
		if gotForm.Get(key) != want {
			t.Errorf("form %s = %q, want %q", key, gotForm.Get(key), want)
		}
	}
}

func TestExamsEmptyShapes(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		resp any
	}{
		{"no exam data signal", legacy(2, "No exam data available")},
		{"query not possible signal", legacy(1, "Query not possible")},
		{"modern no exam data", modern(2, "No exam data available")},
		{"success with non-array payload", legacy(0, map[string]any{"note": "none"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t)
			up.respond("thiapp/exams", tt.resp)
			svc, _ := newTestCampus(t, up, &stubProvider{token: "tok"})

			exams, err := svc.GetExams(ctx)
			if err != nil {
				t.Fatalf("expected empty exams, got error %v", err)
			}
			if exams == nil || len(exams) != 0 {
				t.Errorf("expected empty slice, got %v", exams)
			}
		})
	}
}

func TestExamsOtherErrorPropagates(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	up.respond("thiapp/exams", legacy(5, "backend down"))

	svc, _ := newTestCampus(t, up, &stubProvider{token: "tok"})

	_, err := svc.GetExams(ctx)
	if !errors.Is(err, campus.ErrAPIFailure) {
		t.Fatalf("expected ErrAPIFailure, got %v", err)
	}
	var apiErr *campus.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != 5 || apiErr.Data != "backend down" {
		t.Errorf("unexpected fields: %+v", apiErr)
	}
}

func TestAvailableSeatsAlreadyReservedIsEmpty(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	up.respond("thiapp/reservations/getavailabilities", legacy(2, "Unbekannter Fehler"))

	svc, _ := newTestCampus(t, up, &stubProvider{token: "tok"})

	items, err := svc.GetAvailableLibrarySeats(ctx)
	if err != nil {
		t.Fatalf("expected empty availability, got error %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no slots, got %d", len(items))
	}
}

func TestAvailableSeatsDecodesSlotsInOrder(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	// Raw JSON keeps the resource order a Go map would destroy.
	up.respond("thiapp/reservations/getavailabilities", legacy(0, json.RawMessage(`[
		{"from":"2026-08-28T10:00:00","to":"2026-08-28T12:00:00","resources":{
			"r9":{"room_name":"Lesesaal Nord","num_seats":2,"maxnum_seats":8,"seats":["N1","N2"]},
			"r1":{"room_name":"Lesesaal Sued","num_seats":0,"maxnum_seats":8,"seats":[]}
		}}
	]`)))

	svc, _ := newTestCampus(t, up, &stubProvider{token: "tok"})

	items, err := svc.GetAvailableLibrarySeats(ctx)
	if err != nil {
		t.Fatalf("availabilities: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(items))
	}
	if len(items[0].Resources) != 2 || items[0].Resources[0].ID != "r9" {
		t.Errorf("resource order lost: %+v", items[0].Resources)
	}

	options := library.AvailableRooms(items[0])
	if len(options) != 1 || options[0].ID != "r9" {
		t.Errorf("expected only the room with free seats, got %+v", options)
	}
}

func TestRemoveReservationIdempotent(t *testing.T) {
	ctx := context.Background()
	for _, signal := range []string{"No reservation data", "Service not available"} {
		t.Run(signal, func(t *testing.T) {
			up := newFakeUpstream(t)
			up.respond("thiapp/reservations/del", legacy(2, signal))
			svc, _ := newTestCampus(t, up, &stubProvider{token: "tok"})

			if err := svc.RemoveLibraryReservation(ctx, "100"); err != nil {
				t.Errorf("expected idempotent success, got %v", err)
			}
		})
	}
}

func TestAddReservationDecodesIDShapes(t *testing.T) {
	ctx := context.Background()
	booking := library.ReservationRequest{Resource: "r1", At: "2026-08-28", From: "10:00", To: "12:00", Place: "S1"}

	tests := []struct {
		name string
		data any
	}{
		{"bare string", "42"},
		{"bare number", 42},
		{"string array", []any{"42"}},
		{"number array", []any{42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t)
			up.respond("thiapp/reservations/new", legacy(0, tt.data))
			svc, _ := newTestCampus(t, up, &stubProvider{token: "tok"})

			id, err := svc.AddLibraryReservation(ctx, booking)
			if err != nil {
				t.Fatalf("add reservation: %v", err)
			}
			if id != "42" {
				t.Errorf("expected id 42, got %q", id)
			}
		})
	}
}

func TestAddReservationSendsWireDocument(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	var gotForm url.Values
	up.on("thiapp/reservations/new", func(form url.Values) any {
		gotForm = form
		return legacy(0, "7")
	})

	svc, _ := newTestCampus(t, up, &stubProvider{token: "tok"})

	booking := library.ReservationRequest{Resource: "r1", At: "2026-08-28", From: "10:00", To: "12:00", Place: "S1"}
	if _, err := svc.AddLibraryReservation(ctx, booking); err != nil {
		t.Fatalf("add reservation: %v", err)
	}

	if gotForm.Get("type") != "1" {
		t.Errorf("expected type 1, got %q", gotForm.Get("type"))
	}
	var sent library.ReservationRequest
	if err := json.Unmarshal([]byte(gotForm.Get("data")), &sent); err != nil {
		t.Fatalf("data param is not a JSON document: %v", err)
	}
	if sent != booking {
		t.Errorf("sent %+v, want %+v", sent, booking)
	}
}

func TestSessionRejectedRetriesOnce(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	up.on("thiapp/grades", func(form url.Values) any {
		if form.Get("session") == "stale" {
			return legacy(3, "Session is invalid")
		}
		return legacy(0, []map[string]any{{"titel": "Math", "note": "1.3"}})
	})

	provider := &stubProvider{token: "stale", refreshTo: "fresh"}
	svc, _ := newTestCampus(t, up, provider)

	grades, err := svc.GetGrades(ctx)
	if err != nil {
		t.Fatalf("grades: %v", err)
	}
	if len(grades) != 1 || grades[0].Title != "Math" {
		t.Errorf("unexpected grades: %+v", grades)
	}
	if provider.refreshCount() != 1 {
		t.Errorf("expected 1 refresh, got %d", provider.refreshCount())
	}
	if got := up.count("thiapp/grades"); got != 2 {
		t.Errorf("expected 2 upstream calls, got %d", got)
	}
}

func TestSessionRejectedTwiceGivesUp(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	up.respond("thiapp/grades", legacy(3, "Session is invalid!"))

	provider := &stubProvider{token: "stale", refreshTo: "still-rejected"}
	svc, _ := newTestCampus(t, up, provider)

	_, err := svc.GetGrades(ctx)
	if !errors.Is(err, session.ErrInvalid) {
		t.Fatalf("expected session.ErrInvalid, got %v", err)
	}
	var apiErr *campus.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("session failure must not surface as APIError: %v", err)
	}
	if provider.refreshCount() != 1 {
		t.Errorf("expected exactly 1 refresh, got %d", provider.refreshCount())
	}
	if got := up.count("thiapp/grades"); got != 2 {
		t.Errorf("expected 2 upstream calls, got %d", got)
	}
}

func TestRefreshFailurePropagates(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	up.respond("thiapp/grades", legacy(3, "Session expired"))

	provider := &stubProvider{
		token:      "stale",
		refreshErr: session.ErrInvalid,
	}
	svc, _ := newTestCampus(t, up, provider)

	_, err := svc.GetGrades(ctx)
	if !errors.Is(err, session.ErrInvalid) {
		t.Fatalf("expected session.ErrInvalid, got %v", err)
	}
	if got := up.count("thiapp/grades"); got != 1 {
		t.Errorf("expected 1 upstream call, got %d", got)
	}
}

func TestGuestSessionRejectedLocally(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)

	svc, _ := newTestCampus(t, up, &stubProvider{sessionErr: session.ErrGuest})

	_, err := svc.GetPersonalData(ctx)
	if !errors.Is(err, session.ErrGuest) {
		t.Fatalf("expected ErrGuest, got %v", err)
	}
	if got := up.count("thiapp/persdata"); got != 0 {
		t.Errorf("guest calls must not reach the upstream, got %d calls", got)
	}
}

func TestConcurrentMissesShareOneUpstreamCall(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	up.setDelay(50 * time.Millisecond)
	up.respond("thiapp/exams", legacy(0, []map[string]any{{"titel": "Math"}}))

	svc, _ := newTestCampus(t, up, &stubProvider{token: "tok"})

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.GetExams(ctx)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("worker %d: %v", i, err)
		}
	}
	if got := up.count("thiapp/exams"); got != 1 {
		t.Errorf("expected 1 shared upstream call, got %d", got)
	}
}

func TestCacheMetricsRecorded(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	up.respond("thiapp/persdata", legacy(0, map[string]any{"persdata": map[string]any{}}))

	transport := thi.New(up.server.URL,
		thi.WithHTTPClient(up.server.Client()),
		thi.WithLogger(discardLogger()),
	)
	m := metrics.New(prometheus.NewRegistry())
	svc := NewCampusService(transport, &stubProvider{token: "tok"}, memory.NewCache(),
		WithCampusLogger(discardLogger()),
		WithCampusMetrics(m),
	)

	for i := 0; i < 3; i++ {
		if _, err := svc.GetPersonalData(ctx); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	if got := testutil.ToFloat64(m.CacheMissesTotal); got != 1 {
		t.Errorf("cache_misses_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheHitsTotal); got != 2 {
		t.Errorf("cache_hits_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("persdata", "ok")); got != 1 {
		t.Errorf("requests_total = %v, want 1", got)
	}
}

func TestFlushCache(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream(t)
	up.respond("thiapp/grades", legacy(0, []map[string]any{{"titel": "Math"}}))

	svc, cache := newTestCampus(t, up, &stubProvider{token: "tok"})

	if _, err := svc.GetGrades(ctx); err != nil {
		t.Fatalf("grades: %v", err)
	}
	if cache.Size() != 1 {
		t.Fatalf("expected 1 cached entry, got %d", cache.Size())
	}

	if err := svc.FlushCache(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if cache.Size() != 0 {
		t.Errorf("expected empty cache after flush, got %d entries", cache.Size())
	}

	if _, err := svc.GetGrades(ctx); err != nil {
		t.Fatalf("grades after flush: %v", err)
	}
	if got := up.count("thiapp/grades"); got != 2 {
		t.Errorf("expected refetch after flush, got %d upstream calls", got)
	}
}
