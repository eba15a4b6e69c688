// Package extract converts uploaded proposal documents into plain text.
package extract

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText extracts the concatenated plain text of all pages of a PDF
// document, in page order. Extraction is all-or-nothing: any failure
// (corrupt input, unsupported format, empty document, unreadable page)
// yields the empty string, never partial text.
func PDFText(data []byte) (text string) {
	// The pdf parser panics on some malformed inputs; treat those the
	// same as a parse error.
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	if len(data) == 0 {
		return ""
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			return ""
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return ""
		}
		sb.WriteString(pageText)
	}

	return sb.String()
}
