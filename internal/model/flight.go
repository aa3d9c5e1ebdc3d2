package model

import "time"

// CollectionType identifies which collection pass produced a record.
type CollectionType string

const (
	CollectionRealtime CollectionType = "realtime_departures"
	CollectionPast     CollectionType = "past_departures"
)

// FlightTimes holds the instants and gate info for one side of a leg.
type FlightTimes struct {
	ScheduledUTC *time.Time `bson:"scheduled_utc,omitempty" json:"scheduled_utc,omitempty"`
	EstimatedUTC *time.Time `bson:"estimated_utc,omitempty" json:"estimated_utc,omitempty"`
	ActualUTC    *time.Time `bson:"actual_utc,omitempty" json:"actual_utc,omitempty"`
	Terminal     string     `bson:"terminal,omitempty" json:"terminal,omitempty"`
	Gate         string     `bson:"gate,omitempty" json:"gate,omitempty"`
	DelayMinutes *int       `bson:"delay_minutes,omitempty" json:"delay_minutes,omitempty"`
}

// Flight is one flight-schedule snapshot. The ID is assigned from intrinsic
// fields (see identity.Flight) and stays stable across re-collections of the
// same real-world flight.
type Flight struct {
	ID           string      `bson:"_id,omitempty" json:"id,omitempty"`
	FlightNumber string      `bson:"flight_number" json:"flight_number"`
	FromCode     string      `bson:"from_code" json:"from_code"`
	ToCode       string      `bson:"to_code" json:"to_code"`
	OperatedBy   string      `bson:"operated_by,omitempty" json:"operated_by,omitempty"`
	Departure    FlightTimes `bson:"departure" json:"departure"`
	Arrival      FlightTimes `bson:"arrival" json:"arrival"`
	Status       string      `bson:"status,omitempty" json:"status,omitempty"`

	// Weather references, set by the association engines.
	MetarID string `bson:"metar_id,omitempty" json:"metar_id,omitempty"`
	TafID   string `bson:"taf_id,omitempty" json:"taf_id,omitempty"`

	Metadata FlightMetadata `bson:"_metadata" json:"_metadata"`
}

// FlightMetadata records collection provenance and association state.
type FlightMetadata struct {
	CollectionSessionID string         `bson:"collection_session_id" json:"collection_session_id"`
	CollectionType      CollectionType `bson:"collection_type" json:"collection_type"`
	CollectedAt         time.Time      `bson:"collected_at" json:"collected_at"`

	IsUpdated                   bool       `bson:"is_updated" json:"is_updated"`
	UpdateCount                 int        `bson:"update_count" json:"update_count"`
	LastUpdatedAt               *time.Time `bson:"last_updated_at,omitempty" json:"last_updated_at,omitempty"`
	PreviousCollectionSessionID string     `bson:"previous_collection_session_id,omitempty" json:"previous_collection_session_id,omitempty"`

	MetarAssociated   bool       `bson:"metar_associated,omitempty" json:"metar_associated,omitempty"`
	MetarAssociatedAt *time.Time `bson:"metar_associated_at,omitempty" json:"metar_associated_at,omitempty"`
	TafAssociated     bool       `bson:"taf_associated,omitempty" json:"taf_associated,omitempty"`
	TafAssociatedAt   *time.Time `bson:"taf_associated_at,omitempty" json:"taf_associated_at,omitempty"`
}

// IsCodeshare reports whether this row is a marketing duplicate of another
// carrier's physical flight.
func (f *Flight) IsCodeshare() bool {
	return f.OperatedBy != ""
}

// AirlineCode returns the two-letter carrier prefix of the flight number.
func (f *Flight) AirlineCode() string {
	if len(f.FlightNumber) < 2 {
		return ""
	}
	return f.FlightNumber[:2]
}

// ArrivalDelayMinutes computes the arrival delay against schedule, clamped
// at zero. Returns the feed-supplied delay when present, nil when the
// instants needed to derive one are missing.
func (f *Flight) ArrivalDelayMinutes() *int {
	if f.Arrival.DelayMinutes != nil {
		return f.Arrival.DelayMinutes
	}
	if f.Arrival.ScheduledUTC == nil || f.Arrival.ActualUTC == nil {
		return nil
	}
	mins := int(f.Arrival.ActualUTC.Sub(*f.Arrival.ScheduledUTC).Minutes())
	if mins < 0 {
		mins = 0
	}
	return &mins
}
