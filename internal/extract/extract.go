// Package extract recovers plain text from uploaded source files so the
// structured-extraction pipeline only ever sees text.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFile indicates a file type the extractor cannot read.
var ErrUnsupportedFile = errors.New("unsupported file type")

// FileExtractor implements text recovery for the upload path. The zero value
// is ready to use.
type FileExtractor struct{}

// Text reads the file and returns its plain text. The format is decided by
// content sniffing first, the file extension second.
func (FileExtractor) Text(fileName string, r io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrUnsupportedFile)
	}

	switch detectFormat(fileName, data) {
	case formatPDF:
		return pdfText(data)
	case formatDOCX:
		return docxText(data)
	case formatPlain:
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(fileName))
	}
}

type format int

const (
	formatUnknown format = iota
	formatPDF
	formatDOCX
	formatPlain
)

func detectFormat(fileName string, data []byte) format {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return formatPDF
	}
	// A DOCX is a zip; confirm it actually carries a word document rather
	// than trusting the extension.
	if bytes.HasPrefix(data, []byte("PK")) && hasZipEntry(data, "word/document.xml") {
		return formatDOCX
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt", ".md", ".text":
		if utf8.Valid(data) {
			return formatPlain
		}
	}
	return formatUnknown
}

func hasZipEntry(data []byte, want string) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == want {
			return true
		}
	}
	return false
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open docx body: %w", err)
		}
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("read docx body: %w", err)
		}
		return flattenDocumentXML(raw), nil
	}
	return "", errors.New("docx has no word/document.xml")
}

// flattenDocumentXML collects character data, inserting newlines at
// paragraph and line-break boundaries.
func flattenDocumentXML(raw []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteByte('\n')
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
