package model

import "time"

// SkyCondition is one cloud layer of an observation or forecast.
type SkyCondition struct {
	SkyCover       string `bson:"sky_cover" json:"sky_cover"`
	CloudBaseFtAGL *int   `bson:"cloud_base_ft_agl,omitempty" json:"cloud_base_ft_agl,omitempty"`
	CloudType      string `bson:"cloud_type,omitempty" json:"cloud_type,omitempty"`
}

// Metar is a single aerodrome routine observation, valid at one instant.
type Metar struct {
	ID              string    `bson:"_id,omitempty" json:"id,omitempty"`
	StationID       string    `bson:"station_id" json:"station_id"`
	ObservationTime time.Time `bson:"observation_time" json:"observation_time"`
	RawText         string    `bson:"raw_text,omitempty" json:"raw_text,omitempty"`

	TempC               *float64 `bson:"temp_c,omitempty" json:"temp_c,omitempty"`
	DewpointC           *float64 `bson:"dewpoint_c,omitempty" json:"dewpoint_c,omitempty"`
	WindDirDegrees      *int     `bson:"wind_dir_degrees,omitempty" json:"wind_dir_degrees,omitempty"`
	WindSpeedKt         *int     `bson:"wind_speed_kt,omitempty" json:"wind_speed_kt,omitempty"`
	WindGustKt          *int     `bson:"wind_gust_kt,omitempty" json:"wind_gust_kt,omitempty"`
	VisibilityStatuteMi *float64 `bson:"visibility_statute_mi,omitempty" json:"visibility_statute_mi,omitempty"`
	AltimInHg           *float64 `bson:"altim_in_hg,omitempty" json:"altim_in_hg,omitempty"`
	SeaLevelPressureMb  *float64 `bson:"sea_level_pressure_mb,omitempty" json:"sea_level_pressure_mb,omitempty"`
	FlightCategory      string   `bson:"flight_category,omitempty" json:"flight_category,omitempty"`
	MaxTempC            *float64 `bson:"max_temp_c,omitempty" json:"max_temp_c,omitempty"`
	MinTempC            *float64 `bson:"min_temp_c,omitempty" json:"min_temp_c,omitempty"`
	MetarType           string   `bson:"metar_type,omitempty" json:"metar_type,omitempty"`
	Precip3HrIn         *float64 `bson:"pcp3hr_in,omitempty" json:"pcp3hr_in,omitempty"`
	Precip6HrIn         *float64 `bson:"pcp6hr_in,omitempty" json:"pcp6hr_in,omitempty"`
	Precip24HrIn        *float64 `bson:"pcp24hr_in,omitempty" json:"pcp24hr_in,omitempty"`
	PrecipIn            *float64 `bson:"precip_in,omitempty" json:"precip_in,omitempty"`
	PressureTendencyMb  *float64 `bson:"three_hr_pressure_tendency_mb,omitempty" json:"three_hr_pressure_tendency_mb,omitempty"`
	VertVisFt           *int     `bson:"vert_vis_ft,omitempty" json:"vert_vis_ft,omitempty"`
	WxString            string   `bson:"wx_string,omitempty" json:"wx_string,omitempty"`

	SkyConditions []SkyCondition  `bson:"sky_conditions,omitempty" json:"sky_conditions,omitempty"`
	Metadata      WeatherMetadata `bson:"_metadata" json:"_metadata"`
}

// ChangeIndicator classifies the nature of a TAF forecast segment.
type ChangeIndicator string

const (
	ChangeFrom      ChangeIndicator = "FM"
	ChangeBecoming  ChangeIndicator = "BECMG"
	ChangeTemporary ChangeIndicator = "TEMPO"
	ChangeProbable  ChangeIndicator = "PROB"
	ChangeBase      ChangeIndicator = "" // unmarked base segment
)

// TafSegment is one forecast row of a TAF bulletin: the base period or an
// amendment, with its own validity window and change indicator. A bulletin
// expands into several segments sharing station and issue time.
type TafSegment struct {
	ID            string     `bson:"_id,omitempty" json:"id,omitempty"`
	StationID     string     `bson:"station_id" json:"station_id"`
	IssueTime     time.Time  `bson:"issue_time" json:"issue_time"`
	BulletinTime  *time.Time `bson:"bulletin_time,omitempty" json:"bulletin_time,omitempty"`
	ValidFrom     *time.Time `bson:"valid_time_from,omitempty" json:"valid_time_from,omitempty"`
	ValidTo       *time.Time `bson:"valid_time_to,omitempty" json:"valid_time_to,omitempty"`
	ForecastIndex int        `bson:"forecast_index" json:"forecast_index"`

	// Segment validity window. ForecastTo nil means open-ended.
	ForecastFrom time.Time  `bson:"fcst_time_from" json:"fcst_time_from"`
	ForecastTo   *time.Time `bson:"fcst_time_to,omitempty" json:"fcst_time_to,omitempty"`

	ChangeIndicator ChangeIndicator `bson:"change_indicator,omitempty" json:"change_indicator,omitempty"`
	Probability     *int            `bson:"probability,omitempty" json:"probability,omitempty"`

	WindDirDegrees      *int     `bson:"wind_dir_degrees,omitempty" json:"wind_dir_degrees,omitempty"`
	WindSpeedKt         *int     `bson:"wind_speed_kt,omitempty" json:"wind_speed_kt,omitempty"`
	WindGustKt          *int     `bson:"wind_gust_kt,omitempty" json:"wind_gust_kt,omitempty"`
	VisibilityStatuteMi *float64 `bson:"visibility_statute_mi,omitempty" json:"visibility_statute_mi,omitempty"`
	VertVisFt           *int     `bson:"vert_vis_ft,omitempty" json:"vert_vis_ft,omitempty"`
	AltimInHg           *float64 `bson:"altim_in_hg,omitempty" json:"altim_in_hg,omitempty"`
	MaxTempC            *float64 `bson:"max_temp_c,omitempty" json:"max_temp_c,omitempty"`
	MinTempC            *float64 `bson:"min_temp_c,omitempty" json:"min_temp_c,omitempty"`
	WxString            string   `bson:"wx_string,omitempty" json:"wx_string,omitempty"`
	Remarks             string   `bson:"remarks,omitempty" json:"remarks,omitempty"`
	RawText             string   `bson:"raw_text,omitempty" json:"raw_text,omitempty"`

	SkyConditions []SkyCondition  `bson:"sky_conditions,omitempty" json:"sky_conditions,omitempty"`
	Metadata      WeatherMetadata `bson:"_metadata" json:"_metadata"`
}

// Contains reports whether t falls inside the segment's validity window:
// [from, to) when bounded, t >= from when open-ended.
func (s *TafSegment) Contains(t time.Time) bool {
	if t.Before(s.ForecastFrom) {
		return false
	}
	if s.ForecastTo == nil {
		return true
	}
	return t.Before(*s.ForecastTo)
}

// Duration returns the validity window length and whether it is bounded.
func (s *TafSegment) Duration() (time.Duration, bool) {
	if s.ForecastTo == nil {
		return 0, false
	}
	return s.ForecastTo.Sub(s.ForecastFrom), true
}

// WeatherMetadata records collection provenance for weather documents.
type WeatherMetadata struct {
	CollectionSessionID string    `bson:"collection_session_id" json:"collection_session_id"`
	CollectedAt         time.Time `bson:"collected_at" json:"collected_at"`
	DataType            string    `bson:"data_type,omitempty" json:"data_type,omitempty"`
}
