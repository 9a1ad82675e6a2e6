// Package pdfextract converts uploaded PDF bytes into plain text.
package pdfextract

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
)

// Extract returns the concatenated text of every page, each prefixed with a
// "--- Page N ---" marker so chunk boundaries keep a page reference. Pages
// that fail to decode are skipped; the error is only returned when no page
// yields any text.
func Extract(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", errors.Wrap(err, "open pdf")
	}

	var sb strings.Builder
	pages := reader.NumPage()
	extracted := 0
	for n := 1; n <= pages; n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("skipping unreadable pdf page", "page", n, "err", err)
			continue
		}
		fmt.Fprintf(&sb, "\n--- Page %d ---\n%s\n", n, text)
		if strings.TrimSpace(text) != "" {
			extracted++
		}
	}
	if extracted == 0 {
		return "", errors.Errorf("no extractable text in %d pages", pages)
	}
	return sb.String(), nil
}
