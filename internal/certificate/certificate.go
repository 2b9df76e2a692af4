// Package certificate renders attendance certificates as PDF documents.
package certificate

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

// utf8Family is the family name the configured TrueType font is registered under.
const utf8Family = "certificate"

// ContentType is the MIME type of rendered certificates.
const ContentType = "application/pdf"

// Data is everything printed on a certificate.
type Data struct {
	AttendeeName string
	EventTitle   string
	Date         time.Time
	Location     string
	Organizer    string
}

// Document is a rendered certificate.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Filename derives the download name from an event title.
func Filename(title string) string {
	name := strings.Join(strings.Fields(title), "_")
	if name == "" {
		name = "event"
	}
	return name + "_certificate.pdf"
}

// PDFRenderer lays certificates out on a single A4 page.
type PDFRenderer struct {
	// Brand is printed as the heading.
	Brand string

	// FontPath is a TrueType font file used for every line. When empty the
	// built-in Helvetica is used, which only covers Windows-1252; other
	// characters are printed as '?'.
	FontPath string
}

// NewPDFRenderer constructs a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Brand: "Eventify Certificate"}
}

// Render produces the certificate for d.
func (r *PDFRenderer) Render(d Data) (*Document, error) {
	title := d.EventTitle
	if strings.TrimSpace(title) == "" {
		title = "Untitled Event"
	}
	organizer := d.Organizer
	if strings.TrimSpace(organizer) == "" {
		organizer = "Admin"
	}

	pdf := fpdf.New("P", "mm", "A4", filepath.Dir(r.FontPath))
	pdf.SetMargins(20, 20, 20)
	pdf.SetTitle(r.Brand+": "+title, true)
	pdf.SetCreator("eventify", true)

	family, encode := "Helvetica", toCP1252
	if r.FontPath != "" {
		for _, style := range []string{"", "B", "I"} {
			pdf.AddUTF8Font(utf8Family, style, filepath.Base(r.FontPath))
		}
		family, encode = utf8Family, func(s string) string { return s }
	}
	pdf.AddPage()

	line := func(size float64, style, text string, after float64) {
		pdf.SetFont(family, style, size)
		pdf.CellFormat(0, size*0.5, encode(text), "", 1, "C", false, 0, "")
		pdf.Ln(after)
	}

	pdf.Ln(30)
	line(28, "B", r.Brand, 20)
	line(16, "", "This certifies that", 4)
	line(22, "B", d.AttendeeName, 8)
	line(16, "", "has attended the event", 4)
	line(22, "B", title, 14)
	line(14, "", "Date: "+d.Date.Format("Mon Jan 02 2006"), 2)
	line(14, "", "Location: "+d.Location, 18)
	line(12, "I", "Organizer: "+organizer, 0)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return &Document{
		Filename:    Filename(d.EventTitle),
		ContentType: ContentType,
		Body:        buf.Bytes(),
	}, nil
}

// toCP1252 encodes s for the core PDF fonts. Runes outside Windows-1252
// become '?'.
func toCP1252(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return string(out)
}
