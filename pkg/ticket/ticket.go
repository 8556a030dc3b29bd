// Package ticket renders booking e-tickets as PDF documents.
package ticket

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
)

// Passenger is one line of the ticket
type Passenger struct {
	Seat   string
	Name   string
	Age    int
	Gender string
}

// Data is everything printed on a ticket
type Data struct {
	BookingID     string
	Username      string
	Status        string
	BusNumber     string
	RouteFrom     string
	RouteTo       string
	JourneyDate   string
	DepartsAt     time.Time
	BoardingPoint string
	TotalFare     float64
	Passengers    []Passenger
	CancelledAt   *time.Time
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Render builds the PDF and a download filename
func Render(d Data) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+d.BookingID, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	if d.Status == "Cancelled" {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(200, 0, 0)
		cancelled := "CANCELLED"
		if d.CancelledAt != nil {
			cancelled += " on " + d.CancelledAt.Format("2006-01-02 15:04")
		}
		pdf.Cell(0, 8, cancelled)
		pdf.Ln(10)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking        : %s", d.BookingID),
		fmt.Sprintf("Booked by      : %s", safe(d.Username)),
		fmt.Sprintf("Bus            : %s", safe(d.BusNumber)),
		fmt.Sprintf("Route          : %s -> %s", safe(d.RouteFrom), safe(d.RouteTo)),
		fmt.Sprintf("Journey date   : %s", safe(d.JourneyDate)),
		fmt.Sprintf("Departure      : %s", departure(d.DepartsAt)),
		fmt.Sprintf("Boarding point : %s", safe(d.BoardingPoint)),
		fmt.Sprintf("Total fare     : %.2f", d.TotalFare),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(25, 8, "Seat", "1", 0, "", false, 0, "")
	pdf.CellFormat(90, 8, "Passenger", "1", 0, "", false, 0, "")
	pdf.CellFormat(20, 8, "Age", "1", 0, "", false, 0, "")
	pdf.CellFormat(35, 8, "Gender", "1", 1, "", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	for _, p := range d.Passengers {
		pdf.CellFormat(25, 7, p.Seat, "1", 0, "", false, 0, "")
		pdf.CellFormat(90, 7, safe(p.Name), "1", 0, "", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", p.Age), "1", 0, "", false, 0, "")
		pdf.CellFormat(35, 7, safe(p.Gender), "1", 1, "", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Please present this ticket when boarding. Seats are valid only for the journey date shown.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render ticket: %w", err)
	}

	filename := fmt.Sprintf("ETICKET_%s_%s.pdf", safeFilenamePart(d.JourneyDate), safeFilenamePart(d.BookingID))
	return buf.Bytes(), filename, nil
}

func safe(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func departure(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func safeFilenamePart(s string) string {
	return strings.Trim(unsafeFilename.ReplaceAllString(s, "_"), "_")
}
