package domain

import "time"

// Hotel is a property belonging to an organization.
type Hotel struct {
	ID              string
	OrganizationID  string
	Name            string
	PMSEnabled      bool
	PMSPropertyCode string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Room is a sellable room of a hotel.
type Room struct {
	ID                string
	HotelID           string
	Number            string
	PMSRoomCode       string
	GuestNightsStayed int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RoomContext joins a room with the hotel fields the engine needs.
type RoomContext struct {
	Room  Room
	Hotel Hotel
}
