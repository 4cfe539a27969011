package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	fatigue "safedrive/internal/fatigue/domain"
	trips "safedrive/internal/trips/domain"
)

// BuildTripPDF renders a trip report: summary, route trace and alerts.
func BuildTripPDF(trip *trips.Trip, stats *trips.FatigueStats, alerts []fatigue.Alert) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Trip Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Trip: %s", trip.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Driver: %s", trip.DriverID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", trip.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Start: %s (%s)", trip.StartTime.Format(time.RFC3339), trip.StartLocation))
	pdf.Ln(5)
	if !trip.EndTime.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("End: %s (%s)", trip.EndTime.Format(time.RFC3339), trip.EndLocation))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Distance (km): %.1f", trip.DistanceKM))
	pdf.Ln(8)

	if stats != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Samples: %d", stats.Samples))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Average Fatigue: %.3f", stats.AvgFatigue))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Eye Closures: %d", stats.EyeClosures))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Yawns: %d", stats.TotalYawns))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Seatbelt Violations: %d", stats.SeatbeltViolations))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("High Fatigue %%: %.1f", stats.HighFatiguePct))
		pdf.Ln(8)
	}

	// Route table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Timestamp", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Lat", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Lng", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Fatigue", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Eyes", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, point := range trip.Route {
		pdf.CellFormat(50, 6, point.Timestamp.Format(time.RFC3339), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.5f", point.Lat), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.5f", point.Lng), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", point.FatigueScore), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, point.EyeStatus, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	if len(alerts) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 6, "Raised", "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, "Type", "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, "Severity", "1", 0, "C", false, 0, "")
		pdf.CellFormat(80, 6, "Message", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, alert := range alerts {
			pdf.CellFormat(50, 6, alert.CreatedAt.Format(time.RFC3339), "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 6, string(alert.Type), "1", 0, "C", false, 0, "")
			pdf.CellFormat(25, 6, string(alert.Severity), "1", 0, "C", false, 0, "")
			pdf.CellFormat(80, 6, alert.Message, "1", 0, "L", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildTripXLSX renders the same report as a workbook with summary, route and
// alerts sheets.
func BuildTripXLSX(trip *trips.Trip, stats *trips.FatigueStats, alerts []fatigue.Alert) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	routeSheet := "route"
	alertsSheet := "alerts"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(routeSheet)
	f.NewSheet(alertsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Trip Report")
	_ = f.SetCellValue(summarySheet, "A3", "Trip")
	_ = f.SetCellValue(summarySheet, "B3", trip.ID)
	_ = f.SetCellValue(summarySheet, "A4", "Driver")
	_ = f.SetCellValue(summarySheet, "B4", trip.DriverID)
	_ = f.SetCellValue(summarySheet, "A5", "Status")
	_ = f.SetCellValue(summarySheet, "B5", trip.Status)
	_ = f.SetCellValue(summarySheet, "A6", "Start")
	_ = f.SetCellValue(summarySheet, "B6", trip.StartTime.Format(time.RFC3339))
	if !trip.EndTime.IsZero() {
		_ = f.SetCellValue(summarySheet, "A7", "End")
		_ = f.SetCellValue(summarySheet, "B7", trip.EndTime.Format(time.RFC3339))
	}
	_ = f.SetCellValue(summarySheet, "A8", "Distance (km)")
	_ = f.SetCellValue(summarySheet, "B8", trip.DistanceKM)
	if stats != nil {
		_ = f.SetCellValue(summarySheet, "A10", "Samples")
		_ = f.SetCellValue(summarySheet, "B10", stats.Samples)
		_ = f.SetCellValue(summarySheet, "A11", "Average Fatigue")
		_ = f.SetCellValue(summarySheet, "B11", stats.AvgFatigue)
		_ = f.SetCellValue(summarySheet, "A12", "Eye Closures")
		_ = f.SetCellValue(summarySheet, "B12", stats.EyeClosures)
		_ = f.SetCellValue(summarySheet, "A13", "Yawns")
		_ = f.SetCellValue(summarySheet, "B13", stats.TotalYawns)
		_ = f.SetCellValue(summarySheet, "A14", "Seatbelt Violations")
		_ = f.SetCellValue(summarySheet, "B14", stats.SeatbeltViolations)
		_ = f.SetCellValue(summarySheet, "A15", "High Fatigue %")
		_ = f.SetCellValue(summarySheet, "B15", stats.HighFatiguePct)
	}

	_ = f.SetCellValue(routeSheet, "A1", "Timestamp")
	_ = f.SetCellValue(routeSheet, "B1", "Lat")
	_ = f.SetCellValue(routeSheet, "C1", "Lng")
	_ = f.SetCellValue(routeSheet, "D1", "Fatigue")
	_ = f.SetCellValue(routeSheet, "E1", "Eyes")
	for i, point := range trip.Route {
		row := i + 2
		_ = f.SetCellValue(routeSheet, fmt.Sprintf("A%d", row), point.Timestamp.Format(time.RFC3339))
		_ = f.SetCellValue(routeSheet, fmt.Sprintf("B%d", row), point.Lat)
		_ = f.SetCellValue(routeSheet, fmt.Sprintf("C%d", row), point.Lng)
		_ = f.SetCellValue(routeSheet, fmt.Sprintf("D%d", row), point.FatigueScore)
		_ = f.SetCellValue(routeSheet, fmt.Sprintf("E%d", row), point.EyeStatus)
	}

	_ = f.SetCellValue(alertsSheet, "A1", "Raised")
	_ = f.SetCellValue(alertsSheet, "B1", "Type")
	_ = f.SetCellValue(alertsSheet, "C1", "Severity")
	_ = f.SetCellValue(alertsSheet, "D1", "Message")
	_ = f.SetCellValue(alertsSheet, "E1", "Acknowledged")
	for i, alert := range alerts {
		row := i + 2
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("A%d", row), alert.CreatedAt.Format(time.RFC3339))
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("B%d", row), string(alert.Type))
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("C%d", row), string(alert.Severity))
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("D%d", row), alert.Message)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("E%d", row), alert.Acknowledged)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
