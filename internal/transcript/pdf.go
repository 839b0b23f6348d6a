package transcript

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
)

const (
	pdfFont       = "Helvetica"
	pdfLineHeight = 6
)

func renderPDF(t Transcript) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("render pdf transcript: %v", r)
		}
	}()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Interview transcript", true)
	doc.SetAutoPageBreak(true, 15)
	doc.AliasNbPages("")
	doc.SetFooterFunc(func() {
		doc.SetY(-12)
		doc.SetFont(pdfFont, "I", 8)
		doc.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", doc.PageNo()), "", 0, "C", false, 0, "")
	})
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.AddPage()

	doc.SetFont(pdfFont, "B", 16)
	doc.CellFormat(0, 10, "Interview transcript", "", 1, "L", false, 0, "")

	doc.SetFont(pdfFont, "", 10)
	summary := []string{
		"Session: " + t.SessionID,
		"Started: " + t.StartedAt.Format("2006-01-02 15:04"),
		fmt.Sprintf("Answered: %d of %d", t.Answered, t.Total),
		"Average rating: " + strconv.FormatFloat(t.AverageRating, 'f', 1, 64) + " / 10",
	}
	for _, line := range summary {
		doc.CellFormat(0, pdfLineHeight, tr(line), "", 1, "L", false, 0, "")
	}

	if t.Profile != "" {
		section(doc, tr, "Profile")
		doc.SetFont(pdfFont, "", 10)
		doc.MultiCell(0, pdfLineHeight-1, tr(t.Profile), "", "L", false)
	}

	for _, turn := range t.Turns {
		section(doc, tr, fmt.Sprintf("Question %d", turn.Index+1))

		doc.SetFont(pdfFont, "B", 10)
		doc.MultiCell(0, pdfLineHeight, tr(turn.Question), "", "L", false)

		doc.SetFont(pdfFont, "", 10)
		field(doc, tr, "Answer", turn.Answer)

		ev := turn.Evaluation
		field(doc, tr, "Rating", strconv.FormatFloat(ev.Rating, 'f', -1, 64)+" / 10")
		field(doc, tr, "Summary", ev.Summary)
		field(doc, tr, "Strengths", bulletList(ev.Strengths))
		field(doc, tr, "Areas to improve", bulletList(ev.Improvements))
		field(doc, tr, "Recommendation", ev.Recommendation)
	}

	if len(t.Pending) > 0 {
		section(doc, tr, "Not answered")
		doc.SetFont(pdfFont, "", 10)
		doc.MultiCell(0, pdfLineHeight, tr(bulletList(t.Pending)), "", "L", false)
	}

	if err := doc.Error(); err != nil {
		return nil, errors.Wrap(err, "render pdf transcript")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render pdf transcript")
	}
	return buf.Bytes(), nil
}

func section(doc *fpdf.Fpdf, tr func(string) string, title string) {
	doc.Ln(4)
	doc.SetFont(pdfFont, "B", 12)
	doc.CellFormat(0, 8, tr(title), "B", 1, "L", false, 0, "")
	doc.Ln(1)
}

func field(doc *fpdf.Fpdf, tr func(string) string, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	doc.SetFont(pdfFont, "B", 10)
	doc.CellFormat(0, pdfLineHeight, tr(label+":"), "", 1, "L", false, 0, "")
	doc.SetFont(pdfFont, "", 10)
	doc.MultiCell(0, pdfLineHeight-1, tr(value), "", "L", false)
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			lines = append(lines, "- "+item)
		}
	}
	return strings.Join(lines, "\n")
}
