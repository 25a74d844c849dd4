// Package library derives bookable room and seat inventory from the raw
// reservation availability payload and carries the wire formats of the
// booking endpoint.
package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Wire formats of the reservation endpoint.
const (
	// DayFormat is the "at" field of a reservation request.
	DayFormat = "2006-01-02"
	// ClockFormat is the "from"/"to" fields of a reservation request.
	ClockFormat = "15:04"
)

// slot timestamp layouts seen in availability payloads.
var slotLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// AvailableRoom is one reservable room within a time slot.
type AvailableRoom struct {
	RoomName    string   `json:"room_name"`
	NumSeats    int      `json:"num_seats"`
	MaxNumSeats int      `json:"maxnum_seats"`
	Seats       []string `json:"seats"`
}

// RoomResource pairs a resource id with its room, preserving the upstream
// document order.
type RoomResource struct {
	ID   string
	Room AvailableRoom
}

// AvailableRoomItem is one upstream time slot with its resource map.
// Resources keeps the order of the upstream JSON object: the booking UI
// offers rooms in exactly that order.
type AvailableRoomItem struct {
	From      time.Time
	To        time.Time
	Resources []RoomResource
}

// UnmarshalJSON decodes a slot while preserving the key order of the
// "resources" object, which encoding/json map decoding would lose.
func (item *AvailableRoomItem) UnmarshalJSON(data []byte) error {
	var head struct {
		From      string          `json:"from"`
		To        string          `json:"to"`
		Resources json.RawMessage `json:"resources"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("decode availability slot: %w", err)
	}

	from, err := parseSlotTime(head.From)
	if err != nil {
		return fmt.Errorf("decode slot start: %w", err)
	}
	to, err := parseSlotTime(head.To)
	if err != nil {
		return fmt.Errorf("decode slot end: %w", err)
	}
	item.From = from
	item.To = to
	item.Resources = nil

	if len(head.Resources) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(head.Resources))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode resources: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode resources: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode resource id: %w", err)
		}
		id, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decode resource id: unexpected token %v", keyTok)
		}

		var room AvailableRoom
		if err := dec.Decode(&room); err != nil {
			return fmt.Errorf("decode resource %q: %w", id, err)
		}
		// Upstream invariant: num_seats <= maxnum_seats. Clamp rather than
		// fail; the payload is not under our control.
		if room.MaxNumSeats < room.NumSeats {
			room.MaxNumSeats = room.NumSeats
		}
		item.Resources = append(item.Resources, RoomResource{ID: id, Room: room})
	}

	return nil
}

func parseSlotTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range slotLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// RoomOption is one bookable room offered to the user.
type RoomOption struct {
	// ID is the upstream resource id used in reservation requests.
	ID   string
	Room AvailableRoom
	// Index is the position of the resource in the upstream payload.
	Index int
}

// AvailableRooms returns the bookable rooms of a slot in upstream order.
// Rooms without free seats are excluded entirely; they must never be
// offered as selectable.
func AvailableRooms(item AvailableRoomItem) []RoomOption {
	options := make([]RoomOption, 0, len(item.Resources))
	for i, res := range item.Resources {
		if res.Room.NumSeats <= 0 {
			continue
		}
		options = append(options, RoomOption{ID: res.ID, Room: res.Room, Index: i})
	}
	return options
}

// SeatsFor returns the seat list of the given resource, or nil when the
// resource is not part of the slot.
func SeatsFor(item AvailableRoomItem, roomID string) []string {
	for _, res := range item.Resources {
		if res.ID == roomID {
			return res.Room.Seats
		}
	}
	return nil
}

// ResolveRoomByName finds the resource backing a display name. Multiple
// resource ids can share a name (floors of the same hall); the first match
// in upstream order wins. Prefer resource ids where available, this lookup
// exists for name-based selection only.
func ResolveRoomByName(options []RoomOption, name string) (RoomOption, bool) {
	for _, opt := range options {
		if opt.Room.RoomName == name {
			return opt, true
		}
	}
	return RoomOption{}, false
}

// NextSeat re-validates a seat selection against a room's seat list, as
// needed when the user switches rooms. The current seat is kept when still
// present, otherwise the first available seat is returned, or "" when the
// room has none.
func NextSeat(seats []string, current string) string {
	for _, seat := range seats {
		if seat == current {
			return current
		}
	}
	if len(seats) > 0 {
		return seats[0]
	}
	return ""
}

// TimeSlot is a booking time window.
type TimeSlot struct {
	From time.Time
	To   time.Time
}

// ReservationRequest is the JSON document embedded as a string parameter in
// reservation creation calls.
type ReservationRequest struct {
	Resource string `json:"resource"`
	At       string `json:"at"`
	From     string `json:"from"`
	To       string `json:"to"`
	Place    string `json:"place"`
}

// NewReservationRequest builds the wire document for booking a seat.
func NewReservationRequest(roomID string, slot TimeSlot, seat string) ReservationRequest {
	return ReservationRequest{
		Resource: roomID,
		At:       slot.From.Format(DayFormat),
		From:     slot.From.Format(ClockFormat),
		To:       slot.To.Format(ClockFormat),
		Place:    seat,
	}
}
