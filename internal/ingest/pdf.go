package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"studybuddy/internal/apperr"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads plain text page by page.
type PDFExtractor struct{}

func (PDFExtractor) Extract(ctx context.Context, data []byte) (doc Document, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			doc, err = Document{}, fmt.Errorf("%w: malformed PDF: %v", apperr.ErrExtraction, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", apperr.ErrExtraction, err)
	}

	n := r.NumPage()
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		if i > 1 {
			sb.WriteByte('\f')
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return Document{}, fmt.Errorf("%w: page %d: %v", apperr.ErrExtraction, i, err)
		}
		sb.WriteString(text)
	}
	return Document{Text: sb.String(), Pages: n}, nil
}
