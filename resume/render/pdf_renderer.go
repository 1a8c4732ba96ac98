// Package render produces the downloadable PDF artifact for a structured
// resume document.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"resume-hub/resume/model"
)

const (
	pageWidth    = 612.0
	pageHeight   = 792.0
	marginLeft   = 54.0
	marginTop    = 54.0
	marginBottom = 54.0
	bodySize     = 10.0
	headingSize  = 12.0
	nameSize     = 18.0
	leading      = 14.0
)

// line is one positioned text run.
type line struct {
	text string
	size float64
	bold bool
	gap  float64
}

// PDFRenderer renders a document to PDF bytes. The zero value is ready to
// use.
type PDFRenderer struct{}

// Render lays the document out into pages and serializes them.
func (PDFRenderer) Render(doc model.Document) ([]byte, error) {
	lines := layout(doc)
	if len(lines) == 0 {
		return nil, fmt.Errorf("document produced no content")
	}
	return serialize(paginate(lines)), nil
}

func layout(doc model.Document) []line {
	var out []line

	name := strings.TrimSpace(doc.PersonalInfo.FirstName + " " + doc.PersonalInfo.LastName)
	if name != "" {
		out = append(out, line{text: name, size: nameSize, bold: true, gap: 6})
	}
	if contact := contactLine(doc.PersonalInfo); contact != "" {
		out = append(out, line{text: contact, size: bodySize, gap: 10})
	}

	if len(doc.SummaryPoints) > 0 {
		out = append(out, heading("Summary"))
		for _, p := range doc.SummaryPoints {
			out = append(out, bullets(p)...)
		}
	}

	if len(doc.Experience) > 0 {
		out = append(out, heading("Experience"))
		for _, exp := range doc.Experience {
			title := strings.TrimSpace(exp.Title)
			if exp.Company != "" {
				title = strings.TrimSpace(title + ", " + exp.Company)
			}
			out = append(out, line{text: title, size: bodySize, bold: true})
			if dates := dateRange(exp.StartDate, exp.EndDate); dates != "" {
				out = append(out, line{text: dates, size: bodySize})
			}
			for _, r := range exp.Responsibilities {
				out = append(out, bullets(r)...)
			}
			out = append(out, line{gap: 4})
		}
	}

	if len(doc.Projects) > 0 {
		out = append(out, heading("Projects"))
		for _, p := range doc.Projects {
			out = append(out, line{text: p.Name, size: bodySize, bold: true})
			for _, d := range p.Description {
				out = append(out, bullets(d)...)
			}
			out = append(out, line{gap: 4})
		}
	}

	if len(doc.Education) > 0 {
		out = append(out, heading("Education"))
		for _, e := range doc.Education {
			entry := strings.TrimSpace(e.Degree)
			if e.Field != "" {
				entry = strings.TrimSpace(entry + ", " + e.Field)
			}
			if e.Institution != "" {
				entry = strings.TrimSpace(entry + " - " + e.Institution)
			}
			out = append(out, line{text: entry, size: bodySize})
			if dates := dateRange(e.StartDate, e.EndDate); dates != "" {
				out = append(out, line{text: dates, size: bodySize})
			}
		}
	}

	if len(doc.Technologies) > 0 {
		out = append(out, heading("Technologies"))
		for _, cat := range doc.Technologies {
			out = append(out, wrap(cat.Category+": "+strings.Join(cat.Items, ", "), bodySize, false)...)
		}
	}

	return out
}

func heading(text string) line {
	return line{text: text, size: headingSize, bold: true, gap: 6}
}

func contactLine(info model.PersonalInfo) string {
	var parts []string
	for _, s := range []string{info.Email, info.Phone, info.Location, info.LinkedIn, info.GitHub, info.Website} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	return strings.Join(parts, " | ")
}

func dateRange(start, end string) string {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start + " - Present"
	case start == "":
		return end
	default:
		return start + " - " + end
	}
}

func bullets(text string) []line {
	wrapped := wrap(text, bodySize, false)
	for i := range wrapped {
		if i == 0 {
			wrapped[i].text = "- " + wrapped[i].text
		} else {
			wrapped[i].text = "  " + wrapped[i].text
		}
	}
	return wrapped
}

// wrap splits text into lines that fit the printable width. Character
// counts stand in for glyph metrics; Helvetica at body size averages just
// under 6 points per character.
func wrap(text string, size float64, bold bool) []line {
	const maxChars = 90
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var out []line
	current := words[0]
	for _, w := range words[1:] {
		if len(current)+1+len(w) > maxChars {
			out = append(out, line{text: current, size: size, bold: bold})
			current = w
			continue
		}
		current += " " + w
	}
	out = append(out, line{text: current, size: size, bold: bold})
	return out
}

func paginate(lines []line) [][]line {
	var pages [][]line
	var page []line
	y := pageHeight - marginTop

	for _, l := range lines {
		advance := leading + l.gap
		if l.size > bodySize {
			advance += l.size - bodySize
		}
		if y-advance < marginBottom && len(page) > 0 {
			pages = append(pages, page)
			page = nil
			y = pageHeight - marginTop
		}
		page = append(page, l)
		y -= advance
	}
	if len(page) > 0 {
		pages = append(pages, page)
	}
	return pages
}

// serialize writes the PDF object graph: catalog, page tree, one content
// stream per page, and the two standard fonts.
func serialize(pages [][]line) []byte {
	var buf bytes.Buffer
	offsets := []int{0}

	buf.WriteString("%PDF-1.4\n")

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets)-1, body)
	}

	// Object numbering: 1 catalog, 2 pages, 3..3+n-1 page objects,
	// then n content streams, then the two fonts.
	n := len(pages)
	firstPage := 3
	firstContent := firstPage + n
	fontRegular := firstContent + n
	fontBold := fontRegular + 1

	writeObj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", firstPage+i)
	}
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))

	for i := range pages {
		writeObj(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Contents %d 0 R "+
				"/Resources << /Font << /F1 %d 0 R /F2 %d 0 R >> >> >>",
			pageWidth, pageHeight, firstContent+i, fontRegular, fontBold))
	}

	for _, page := range pages {
		stream := contentStream(page)
		writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream))
	}

	writeObj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	writeObj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold >>")

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets[1:] {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets), xrefStart)

	return buf.Bytes()
}

func contentStream(page []line) string {
	var sb strings.Builder
	sb.WriteString("BT\n")
	y := pageHeight - marginTop
	for _, l := range page {
		advance := leading + l.gap
		if l.size > bodySize {
			advance += l.size - bodySize
		}
		y -= advance
		if l.text == "" {
			continue
		}
		font := "F1"
		if l.bold {
			font = "F2"
		}
		fmt.Fprintf(&sb, "/%s %g Tf\n1 0 0 1 %g %g Tm\n(%s) Tj\n", font, l.size, marginLeft, y, escapeText(l.text))
	}
	sb.WriteString("ET\n")
	return sb.String()
}

func escapeText(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '(', ')':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			if r < 32 || r > 126 {
				// Standard fonts carry no glyphs for arbitrary Unicode.
				sb.WriteByte('?')
			} else {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}
