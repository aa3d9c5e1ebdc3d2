package awc

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Cloud is one cloud layer of an observation or forecast.
type Cloud struct {
	Cover string `json:"cover"`
	Base  *int   `json:"base"`
	Type  string `json:"type,omitempty"`
}

// WindDir carries a wind direction that the API reports either as degrees
// or as the literal "VRB" for variable wind. Degrees is nil when variable
// or absent.
type WindDir struct {
	Degrees  *int
	Variable bool
}

// UnmarshalJSON accepts a number, a numeric string, or "VRB".
func (w *WindDir) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if strings.EqualFold(s, "VRB") {
			w.Variable = true
			return nil
		}
		deg, err := strconv.Atoi(s)
		if err != nil {
			// Unparsable directions are treated as absent.
			return nil
		}
		w.Degrees = &deg
		return nil
	}

	var deg int
	if err := json.Unmarshal(data, &deg); err != nil {
		return err
	}
	w.Degrees = &deg
	return nil
}

// Visibility carries statute-mile visibility that the API reports either
// as a number or as a string like "6+" or "10+".
type Visibility struct {
	StatuteMi *float64
}

// UnmarshalJSON accepts a number or a string with an optional "+" suffix.
func (v *Visibility) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "+")
		mi, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		v.StatuteMi = &mi
		return nil
	}

	var mi float64
	if err := json.Unmarshal(data, &mi); err != nil {
		return err
	}
	v.StatuteMi = &mi
	return nil
}

// EpochTime decodes the API's epoch-second timestamps.
type EpochTime struct {
	time.Time
}

// UnmarshalJSON accepts an epoch-second number or null.
func (t *EpochTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var secs int64
	if err := json.Unmarshal(data, &secs); err != nil {
		return err
	}
	t.Time = time.Unix(secs, 0).UTC()
	return nil
}

// Metar is one aerodrome observation as returned by the data API.
type Metar struct {
	StationID       string     `json:"icaoId"`
	ObservationTime EpochTime  `json:"obsTime"`
	RawText         string     `json:"rawOb"`
	TempC           *float64   `json:"temp"`
	DewpointC       *float64   `json:"dewp"`
	WindDir         WindDir    `json:"wdir"`
	WindSpeedKt     *int       `json:"wspd"`
	WindGustKt      *int       `json:"wgst"`
	Visibility      Visibility `json:"visib"`
	AltimHpa        *float64   `json:"altim"`
	SeaLevelPresMb  *float64   `json:"slp"`
	FlightCategory  string     `json:"fltCat"`
	MetarType       string     `json:"metarType"`
	MaxTempC        *float64   `json:"maxT"`
	MinTempC        *float64   `json:"minT"`
	PrecipIn        *float64   `json:"precip"`
	Precip3HrIn     *float64   `json:"pcp3hr"`
	Precip6HrIn     *float64   `json:"pcp6hr"`
	Precip24HrIn    *float64   `json:"pcp24hr"`
	PresTendencyMb  *float64   `json:"presTend"`
	VertVisFt       *int       `json:"vertVis"`
	WxString        string     `json:"wxString"`
	Clouds          []Cloud    `json:"clouds"`
}

// TafForecast is one forecast row inside a TAF bulletin. TimeTo is the
// zero value for an open-ended trailing row.
type TafForecast struct {
	TimeFrom        EpochTime  `json:"timeFrom"`
	TimeTo          EpochTime  `json:"timeTo"`
	ChangeIndicator string     `json:"fcstChange"`
	Probability     *int       `json:"probability"`
	WindDir         WindDir    `json:"wdir"`
	WindSpeedKt     *int       `json:"wspd"`
	WindGustKt      *int       `json:"wgst"`
	Visibility      Visibility `json:"visib"`
	VertVisFt       *int       `json:"vertVis"`
	AltimHpa        *float64   `json:"altim"`
	MaxTempC        *float64   `json:"maxT"`
	MinTempC        *float64   `json:"minT"`
	WxString        string     `json:"wxString"`
	NotDecoded      string     `json:"notDecoded"`
	Clouds          []Cloud    `json:"clouds"`
}

// Taf is one bulletin with its expanded forecast rows.
type Taf struct {
	StationID     string        `json:"icaoId"`
	IssueTime     EpochTime     `json:"issueTime"`
	BulletinTime  EpochTime     `json:"bulletinTime"`
	ValidTimeFrom EpochTime     `json:"validTimeFrom"`
	ValidTimeTo   EpochTime     `json:"validTimeTo"`
	RawText       string        `json:"rawTAF"`
	Remarks       string        `json:"remarks"`
	Forecasts     []TafForecast `json:"fcsts"`
}

// AltimInHg converts the API's hectopascal altimeter to inches of mercury.
func AltimInHg(hpa *float64) *float64 {
	if hpa == nil {
		return nil
	}
	inHg := *hpa / 33.8639
	return &inHg
}
