package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
)

const (
	// DocumentContentType is the content type of the paginated export
	DocumentContentType = "application/pdf"

	documentTitle = "Sensor readings"
	fontFamily    = "Helvetica"
	rowHeight     = 7.0
)

var documentWidths = []float64{70, 40, 40, 40}

// ToDocument renders the readings as a paginated PDF table, the header row is repeated on every page
func ToDocument(readings []common.Reading, loc *time.Location) ([]byte, error) {
	pdf := renderDocument(readings, loc)

	buff := &bytes.Buffer{}
	err := pdf.Output(buff)
	if err != nil {
		return nil, err
	}

	log.Debug("readings exported to document", "num readings", len(readings), "pages", pdf.PageCount(), "size", buff.Len())

	return buff.Bytes(), nil
}

func renderDocument(readings []common.Reading, loc *time.Location) *fpdf.Fpdf {
	if loc == nil {
		loc = time.UTC
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(documentTitle, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFont(fontFamily, "B", 14)
		pdf.CellFormat(0, 10, documentTitle, "", 1, "L", false, 0, "")

		pdf.SetFont(fontFamily, "B", 10)
		pdf.SetFillColor(47, 85, 151)
		pdf.SetTextColor(255, 255, 255)
		for i, c := range columns {
			pdf.CellFormat(documentWidths[i], rowHeight, c, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	// core fonts only encode cp1252, runes outside it are replaced instead of garbled
	translate := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont(fontFamily, "", 9)
	for i, r := range readings {
		// zebra rows
		fill := i%2 == 1
		pdf.SetFillColor(221, 235, 247)
		pdf.SetTextColor(0, 0, 0)

		cells := documentCells(r, loc, translate)
		for j, c := range cells {
			align := "L"
			if j == len(cells)-1 {
				align = "R"
			}
			pdf.CellFormat(documentWidths[j], rowHeight, c, "1", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf
}

func documentCells(r common.Reading, loc *time.Location, translate func(string) string) []string {
	return []string{
		r.Timestamp.In(loc).Format(time.RFC3339Nano),
		translate(r.SensorID),
		translate(r.Metric),
		strconv.FormatFloat(r.Value, 'f', -1, 64),
	}
}
