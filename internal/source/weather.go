package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/skyward-data/flightwx-cli/internal/model"
	"github.com/skyward-data/flightwx-cli/pkg/awc"
)

// AWCSource adapts the aviationweather.gov client to the WeatherSource
// contract, expanding TAF bulletins into per-forecast segments.
type AWCSource struct {
	client *awc.Client

	// MetarHours is the observation lookback passed to the API.
	MetarHours int
}

// NewAWCSource creates a weather source backed by the given client.
func NewAWCSource(client *awc.Client) *AWCSource {
	return &AWCSource{client: client, MetarHours: 2}
}

// Metars fetches recent observations for the stations.
func (s *AWCSource) Metars(ctx context.Context, stations []string) ([]model.Metar, error) {
	raw, err := s.client.Metars(ctx, stations, s.MetarHours)
	if err != nil {
		return nil, eris.Wrap(err, "source: metars")
	}

	out := make([]model.Metar, 0, len(raw))
	for _, m := range raw {
		out = append(out, convertMetar(m))
	}
	return out, nil
}

// Tafs fetches current bulletins and expands each into segments indexed by
// position within the bulletin.
func (s *AWCSource) Tafs(ctx context.Context, stations []string) ([]model.TafSegment, error) {
	raw, err := s.client.Tafs(ctx, stations)
	if err != nil {
		return nil, eris.Wrap(err, "source: tafs")
	}

	var out []model.TafSegment
	for _, taf := range raw {
		out = append(out, expandTaf(taf)...)
	}
	return out, nil
}

func convertClouds(clouds []awc.Cloud) []model.SkyCondition {
	if len(clouds) == 0 {
		return nil
	}
	out := make([]model.SkyCondition, 0, len(clouds))
	for _, c := range clouds {
		out = append(out, model.SkyCondition{
			SkyCover:       c.Cover,
			CloudBaseFtAGL: c.Base,
			CloudType:      c.Type,
		})
	}
	return out
}

func convertMetar(m awc.Metar) model.Metar {
	return model.Metar{
		StationID:           m.StationID,
		ObservationTime:     m.ObservationTime.Time,
		RawText:             m.RawText,
		TempC:               m.TempC,
		DewpointC:           m.DewpointC,
		WindDirDegrees:      m.WindDir.Degrees,
		WindSpeedKt:         m.WindSpeedKt,
		WindGustKt:          m.WindGustKt,
		VisibilityStatuteMi: m.Visibility.StatuteMi,
		AltimInHg:           awc.AltimInHg(m.AltimHpa),
		SeaLevelPressureMb:  m.SeaLevelPresMb,
		FlightCategory:      m.FlightCategory,
		MetarType:           m.MetarType,
		MaxTempC:            m.MaxTempC,
		MinTempC:            m.MinTempC,
		PrecipIn:            m.PrecipIn,
		Precip3HrIn:         m.Precip3HrIn,
		Precip6HrIn:         m.Precip6HrIn,
		Precip24HrIn:        m.Precip24HrIn,
		PressureTendencyMb:  m.PresTendencyMb,
		VertVisFt:           m.VertVisFt,
		WxString:            m.WxString,
		SkyConditions:       convertClouds(m.Clouds),
	}
}

func changeIndicator(raw string) model.ChangeIndicator {
	switch model.ChangeIndicator(raw) {
	case model.ChangeFrom, model.ChangeBecoming, model.ChangeTemporary, model.ChangeProbable:
		return model.ChangeIndicator(raw)
	default:
		return model.ChangeBase
	}
}

func expandTaf(taf awc.Taf) []model.TafSegment {
	segments := make([]model.TafSegment, 0, len(taf.Forecasts))
	for i, fc := range taf.Forecasts {
		seg := model.TafSegment{
			StationID:           taf.StationID,
			IssueTime:           taf.IssueTime.Time,
			ForecastIndex:       i,
			ForecastFrom:        fc.TimeFrom.Time,
			ChangeIndicator:     changeIndicator(fc.ChangeIndicator),
			Probability:         fc.Probability,
			WindDirDegrees:      fc.WindDir.Degrees,
			WindSpeedKt:         fc.WindSpeedKt,
			WindGustKt:          fc.WindGustKt,
			VisibilityStatuteMi: fc.Visibility.StatuteMi,
			VertVisFt:           fc.VertVisFt,
			AltimInHg:           awc.AltimInHg(fc.AltimHpa),
			MaxTempC:            fc.MaxTempC,
			MinTempC:            fc.MinTempC,
			WxString:            fc.WxString,
			Remarks:             taf.Remarks,
			RawText:             taf.RawText,
			SkyConditions:       convertClouds(fc.Clouds),
		}
		if !taf.BulletinTime.IsZero() {
			t := taf.BulletinTime.Time
			seg.BulletinTime = &t
		}
		if !taf.ValidTimeFrom.IsZero() {
			t := taf.ValidTimeFrom.Time
			seg.ValidFrom = &t
		}
		if !taf.ValidTimeTo.IsZero() {
			t := taf.ValidTimeTo.Time
			seg.ValidTo = &t
		}
		if !fc.TimeTo.IsZero() {
			t := fc.TimeTo.Time
			seg.ForecastTo = &t
		}
		segments = append(segments, seg)
	}
	return segments
}
