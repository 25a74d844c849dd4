package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/neuland-ingolstadt/campus-client/internal/domain/campus"
	"github.com/neuland-ingolstadt/campus-client/internal/domain/library"
	"github.com/neuland-ingolstadt/campus-client/internal/metrics"
)

// ErrBookingInFlight is returned when a booking is submitted while another
// one is still pending. The upstream has no idempotency key, so duplicate
// submission would create duplicate reservations.
var ErrBookingInFlight = errors.New("a booking is already in flight")

// ErrUnknownRoom is returned when a booking names a resource that is not
// part of the current availability.
var ErrUnknownRoom = errors.New("room not found in current availability")

// libraryAPI is the slice of the campus client the booking logic needs.
type libraryAPI interface {
	GetAvailableLibrarySeats(ctx context.Context) ([]library.AvailableRoomItem, error)
	GetLibraryReservations(ctx context.Context) ([]campus.Reservation, error)
	AddLibraryReservation(ctx context.Context, booking library.ReservationRequest) (string, error)
	RemoveLibraryReservation(ctx context.Context, reservationID string) error
}

// LibraryService drives library seat booking: it derives bookable
// inventory from the raw availability payload and performs reservation
// mutations through the campus client.
type LibraryService struct {
	api     libraryAPI
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	booking bool
}

// LibraryOption is a functional option for configuring a LibraryService.
type LibraryOption func(*LibraryService)

// WithLibraryLogger sets the structured logger.
func WithLibraryLogger(logger *slog.Logger) LibraryOption {
	return func(s *LibraryService) {
		s.logger = logger
	}
}

// WithLibraryMetrics enables metrics recording.
func WithLibraryMetrics(m *metrics.Metrics) LibraryOption {
	return func(s *LibraryService) {
		s.metrics = m
	}
}

// NewLibraryService creates a LibraryService on top of the campus client.
func NewLibraryService(api libraryAPI, opts ...LibraryOption) *LibraryService {
	s := &LibraryService{
		api:    api,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AvailableSlots returns the raw availability slots, always live.
func (s *LibraryService) AvailableSlots(ctx context.Context) ([]library.AvailableRoomItem, error) {
	return s.api.GetAvailableLibrarySeats(ctx)
}

// Reservations returns the user's current reservations, always live.
func (s *LibraryService) Reservations(ctx context.Context) ([]campus.Reservation, error) {
	return s.api.GetLibraryReservations(ctx)
}

// BookSeat reserves a seat in the given room for the given slot. At most
// one booking is in flight at a time; concurrent submissions are rejected
// with ErrBookingInFlight instead of reaching the upstream twice.
func (s *LibraryService) BookSeat(ctx context.Context, roomID string, slot library.TimeSlot, seat string) (string, error) {
	s.mu.Lock()
	if s.booking {
		s.mu.Unlock()
		return "", ErrBookingInFlight
	}
	s.booking = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.booking = false
		s.mu.Unlock()
	}()

	id, err := s.api.AddLibraryReservation(ctx, library.NewReservationRequest(roomID, slot, seat))
	if err != nil {
		s.recordBooking("book", "error")
		return "", fmt.Errorf("book seat %s in %s: %w", seat, roomID, err)
	}

	s.recordBooking("book", "ok")
	s.logger.Info("seat booked",
		"reservation_id", id,
		"room", roomID,
		"seat", seat,
		"from", slot.From,
		"to", slot.To,
	)
	return id, nil
}

// BookSeatByRoomName resolves a display name to its resource id against
// the given slot and books a seat there. Resource ids are preferred; names
// are not unique across floors and the first match in upstream order wins.
func (s *LibraryService) BookSeatByRoomName(ctx context.Context, item library.AvailableRoomItem, roomName, seat string) (string, error) {
	opt, ok := library.ResolveRoomByName(library.AvailableRooms(item), roomName)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRoom, roomName)
	}

	// Re-validate the seat against the resolved room; a stale selection
	// from a previously shown room falls back to the first free seat.
	seat = library.NextSeat(opt.Room.Seats, seat)
	if seat == "" {
		return "", fmt.Errorf("no free seat in %s", roomName)
	}

	return s.BookSeat(ctx, opt.ID, library.TimeSlot{From: item.From, To: item.To}, seat)
}

// CancelReservation cancels a reservation. Idempotent: cancelling an
// already-gone reservation succeeds.
func (s *LibraryService) CancelReservation(ctx context.Context, reservationID string) error {
	if err := s.api.RemoveLibraryReservation(ctx, reservationID); err != nil {
		s.recordBooking("cancel", "error")
		return fmt.Errorf("cancel reservation %s: %w", reservationID, err)
	}
	s.recordBooking("cancel", "ok")
	s.logger.Info("reservation cancelled", "reservation_id", reservationID)
	return nil
}

func (s *LibraryService) recordBooking(op, status string) {
	if s.metrics != nil {
		s.metrics.BookingsTotal.WithLabelValues(op, status).Inc()
	}
}

// Compile-time verification that the campus client satisfies libraryAPI.
var _ libraryAPI = (*CampusService)(nil)
