// Package export writes warehouse query results to spreadsheet files for
// downstream analysis.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/skyward-data/flightwx-cli/internal/warehouse"
)

// Dataset bundles the rows of one export.
type Dataset struct {
	Flights []warehouse.FlightRow
	Metars  []warehouse.MetarRow
	Tafs    []warehouse.TafRow
}

var flightColumns = []string{
	"Flight ID", "Flight Number", "From", "To",
	"Departure Scheduled (UTC)", "Departure Actual (UTC)", "Departure Final (UTC)",
	"Arrival Scheduled (UTC)", "Arrival Actual (UTC)",
	"Status", "Status Final", "Delay (min)",
	"METAR ID", "TAF ID",
}

var metarColumns = []string{
	"METAR ID", "Station", "Observed (UTC)",
	"Temp (C)", "Wind Dir", "Wind Speed (kt)", "Visibility (mi)",
	"Flight Category", "Raw",
}

var tafColumns = []string{
	"TAF ID", "Station", "Issued (UTC)", "Segment",
	"From (UTC)", "To (UTC)", "Change", "Probability",
	"Wind Dir", "Wind Speed (kt)", "Weather",
}

// WriteWorkbook writes one XLSX workbook with Flights, METAR, and TAF sheets.
func WriteWorkbook(ds Dataset, outputPath string) error {
	file := xlsx.NewFile()

	if err := addFlightSheet(file, ds.Flights); err != nil {
		return err
	}
	if err := addMetarSheet(file, ds.Metars); err != nil {
		return err
	}
	if err := addTafSheet(file, ds.Tafs); err != nil {
		return err
	}

	if err := file.Save(outputPath); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", outputPath)
	}
	return nil
}

// WriteFlightsCSV writes the flight rows as a CSV file. The weather sheets
// have no CSV counterpart.
func WriteFlightsCSV(flights []warehouse.FlightRow, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return eris.Wrap(err, "export: create csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(flightColumns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, fl := range flights {
		if err := w.Write(flightRecord(fl)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	return w.Error()
}

func addFlightSheet(file *xlsx.File, flights []warehouse.FlightRow) error {
	sheet, err := file.AddSheet("Flights")
	if err != nil {
		return eris.Wrap(err, "export: add flights sheet")
	}
	writeHeader(sheet, flightColumns)
	for _, f := range flights {
		writeRecord(sheet, flightRecord(f))
	}
	return nil
}

func addMetarSheet(file *xlsx.File, metars []warehouse.MetarRow) error {
	sheet, err := file.AddSheet("METAR")
	if err != nil {
		return eris.Wrap(err, "export: add metar sheet")
	}
	writeHeader(sheet, metarColumns)
	for _, m := range metars {
		writeRecord(sheet, []string{
			m.ExternalID, m.StationID, formatTime(&m.ObservationTime),
			formatFloat(m.TempC), formatInt(m.WindDirDegrees), formatInt(m.WindSpeedKt),
			formatFloat(m.VisibilityMi), formatStr(m.FlightCategory), formatStr(m.RawText),
		})
	}
	return nil
}

func addTafSheet(file *xlsx.File, tafs []warehouse.TafRow) error {
	sheet, err := file.AddSheet("TAF")
	if err != nil {
		return eris.Wrap(err, "export: add taf sheet")
	}
	writeHeader(sheet, tafColumns)
	for _, t := range tafs {
		writeRecord(sheet, []string{
			t.ExternalID, t.StationID, formatTime(&t.IssueTime), strconv.Itoa(t.ForecastIndex),
			formatTime(&t.ForecastFrom), formatTime(t.ForecastTo),
			formatStr(t.ChangeIndicator), formatInt(t.Probability),
			formatInt(t.WindDirDegrees), formatInt(t.WindSpeedKt), formatStr(t.WxString),
		})
	}
	return nil
}

func flightRecord(f warehouse.FlightRow) []string {
	return []string{
		f.ExternalID, f.FlightNumber, f.FromCode, f.ToCode,
		formatTime(f.DepartureScheduled), formatTime(f.DepartureActual), formatTime(f.DepartureFinal),
		formatTime(f.ArrivalScheduled), formatTime(f.ArrivalActual),
		f.Status, formatStr(f.StatusFinal), formatInt(f.DelayMin),
		formatStr(f.MetarExternalID), formatStr(f.TafExternalID),
	}
}

func writeHeader(sheet *xlsx.Sheet, columns []string) {
	row := sheet.AddRow()
	for _, c := range columns {
		row.AddCell().SetString(c)
	}
}

func writeRecord(sheet *xlsx.Sheet, record []string) {
	row := sheet.AddRow()
	for _, v := range record {
		row.AddCell().SetString(v)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%g", *f)
}
