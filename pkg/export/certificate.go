package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
)

// CertificateData carries everything rendered onto a completion certificate.
type CertificateData struct {
	Title       string
	StudentName string
	EntityName  string
	Enrollment  models.Enrollment
	Windows     []models.SemesterWindow
	IssuedAt    time.Time
}

// CertificateRenderer produces the semester completion certificate PDF
// handed to students once every semester window holds a submission.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render creates the certificate document.
func (r *CertificateRenderer) Render(data CertificateData) ([]byte, error) {
	if data.StudentName == "" {
		return nil, fmt.Errorf("certificate requires a student name")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	title := data.Title
	if title == "" {
		title = "Semester Progress Completion"
	}
	pdf.SetFont("Arial", "B", 22)
	pdf.CellFormat(0, 14, title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, data.StudentName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	body := fmt.Sprintf("completed the photo progress record for %s across the %d-%d course span.",
		data.EntityName, data.Enrollment.StartYear, data.Enrollment.EndYear)
	pdf.CellFormat(0, 8, body, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	if len(data.Windows) > 0 {
		pdf.SetFont("Arial", "B", 10)
		colWidth := 257.0 / 3.0
		for _, header := range []string{"Semester", "From", "To"} {
			pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		for _, w := range data.Windows {
			pdf.CellFormat(colWidth, 7, fmt.Sprintf("%d", w.Index), "1", 0, "C", false, 0, "")
			pdf.CellFormat(colWidth, 7, w.Start.Format("02 Jan 2006"), "1", 0, "C", false, 0, "")
			// End is exclusive, show the last covered day
			pdf.CellFormat(colWidth, 7, w.End.AddDate(0, 0, -1).Format("02 Jan 2006"), "1", 0, "C", false, 0, "")
			pdf.Ln(-1)
		}
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "Issued "+data.IssuedAt.Format("02 Jan 2006"), "", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
