// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package loader

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	ltpdf "github.com/ledongthuc/pdf"
	"github.com/tsawler/tabula"
)

// loadPDF extracts the text layer of a PDF. The layout-aware extractor is
// tried first; if it fails (corrupt xref, encrypted content stream) the
// plain text-layer reader is tried before giving up with ErrExtraction.
// Scanned image-only PDFs produce empty text, not an error.
func loadPDF(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	text, primaryErr := extractTabula(path)
	if primaryErr == nil && strings.TrimSpace(text) != "" {
		return cleanPDFText(text), nil
	}

	text, fallbackErr := extractTextLayer(path)
	if fallbackErr == nil {
		return cleanPDFText(text), nil
	}

	if primaryErr == nil {
		primaryErr = fmt.Errorf("empty text layer")
	}
	return "", fmt.Errorf("%s: %w: primary: %v; fallback: %v", path, ErrExtraction, primaryErr, fallbackErr)
}

func extractTabula(path string) (string, error) {
	text, _, err := tabula.Open(path).Text()
	return text, err
}

// extractTextLayer reads the embedded text layer page by page with the
// plain PDF reader.
func extractTextLayer(path string) (string, error) {
	f, r, err := ltpdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	fonts := make(map[string]*ltpdf.Font)
	var pages []string

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := p.Font(name)
				fonts[name] = &font
			}
		}

		text, err := p.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return "", fmt.Errorf("no extractable text")
	}
	return strings.Join(pages, "\n"), nil
}

var (
	spaceRunRe   = regexp.MustCompile(` +`)
	newlineRunRe = regexp.MustCompile(`\n+`)
	markerSplitRe = regexp.MustCompile(`(第[零一二三四五六七八九十百千\d]+条)`)
)

// cleanPDFText normalizes common PDF extraction artifacts: carriage
// returns, space runs, collapsed newlines, and article markers glued to the
// end of the previous line. Markers are forced onto their own line start so
// segmentation sees them.
func cleanPDFText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = newlineRunRe.ReplaceAllString(text, "\n")
	text = markerSplitRe.ReplaceAllString(text, "\n$1")
	return strings.TrimSpace(text)
}
