package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"studybuddy/internal/apperr"

	"github.com/gabriel-vasile/mimetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	// DefaultMaxChars keeps the prompt plus a 500 token completion inside an 8k context.
	DefaultMaxChars = 5000
	DefaultMinChars = 20

	pdfMIME = "application/pdf"
)

type Extractor interface {
	Extract(ctx context.Context, data []byte) (Document, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Upload is one file as received from the client.
type Upload struct {
	Filename string
	Data     []byte
}

// Validated is an upload that passed the size and type checks.
type Validated struct {
	ID       string
	Filename string
	Data     []byte
}

// Document is the extracted plain text. Pages are separated by form feeds.
type Document struct {
	Text  string
	Pages int
}

// Excerpt is the prefix of a document that goes into the prompt.
type Excerpt struct {
	Text       string
	TextLength int
	Pages      int
	Truncated  bool
}

type Result struct {
	UploadID   string `json:"uploadId"`
	Filename   string `json:"originalFilename"`
	Summary    string `json:"summary"`
	TextLength int    `json:"textLength"`
	Pages      int    `json:"pages,omitempty"`
	Truncated  bool   `json:"truncated"`
}

// Pipeline runs validate -> extract -> truncate -> summarize. Each step
// can be called on its own.
type Pipeline struct {
	MaxBytes int64
	MaxChars int
	MinChars int

	Extractor  Extractor
	Summarizer Summarizer
	Log        *zap.Logger
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

func (p *Pipeline) Run(ctx context.Context, up Upload) (Result, error) {
	v, err := p.Validate(up)
	if err != nil {
		return Result{}, err
	}
	doc, err := p.Extract(ctx, v)
	if err != nil {
		p.logger().Warn("PDF extraction failed",
			zap.String("upload_id", v.ID),
			zap.String("filename", v.Filename),
			zap.Error(err))
		return Result{}, err
	}
	ex := p.Truncate(doc)

	summary, err := p.Summarize(ctx, ex)
	if err != nil {
		return Result{}, err
	}

	p.logger().Info("PDF summarized",
		zap.String("upload_id", v.ID),
		zap.String("filename", v.Filename),
		zap.Int("bytes", len(v.Data)),
		zap.Int("pages", ex.Pages),
		zap.Int("text_length", ex.TextLength),
		zap.Bool("truncated", ex.Truncated))

	return Result{
		UploadID:   v.ID,
		Filename:   v.Filename,
		Summary:    summary,
		TextLength: ex.TextLength,
		Pages:      ex.Pages,
		Truncated:  ex.Truncated,
	}, nil
}

// Validate checks size, then extension and content type. The content
// sniff is authoritative; a .pdf name alone is not enough.
func (p *Pipeline) Validate(up Upload) (Validated, error) {
	if len(up.Data) == 0 {
		return Validated{}, fmt.Errorf("%w: file is empty", apperr.ErrValidation)
	}
	if p.MaxBytes > 0 && int64(len(up.Data)) > p.MaxBytes {
		return Validated{}, fmt.Errorf("%w: file exceeds %d bytes", apperr.ErrPayloadTooLarge, p.MaxBytes)
	}

	name := filepath.Base(strings.TrimSpace(up.Filename))
	if name == "." || name == "/" {
		name = ""
	}
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" && ext != ".pdf" {
		return Validated{}, fmt.Errorf("%w: only PDF files are allowed (got %s)", apperr.ErrUnsupportedMediaType, ext)
	}
	if mt := mimetype.Detect(up.Data); !mt.Is(pdfMIME) {
		return Validated{}, fmt.Errorf("%w: only PDF files are allowed (detected %s)", apperr.ErrUnsupportedMediaType, mt.String())
	}

	id, err := gonanoid.New()
	if err != nil {
		return Validated{}, fmt.Errorf("generate upload id: %w", err)
	}
	return Validated{ID: id, Filename: name, Data: up.Data}, nil
}

// Extract pulls the text out of a validated upload. Text shorter than
// MinChars after trimming is reported as ErrEmptyContent.
func (p *Pipeline) Extract(ctx context.Context, v Validated) (Document, error) {
	doc, err := p.Extractor.Extract(ctx, v.Data)
	if err != nil {
		if errors.Is(err, apperr.ErrExtraction) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("%w: %v", apperr.ErrExtraction, err)
	}

	doc.Text = strings.TrimSpace(doc.Text)
	minChars := p.MinChars
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	if utf8.RuneCountInString(doc.Text) < minChars {
		return Document{}, fmt.Errorf("%w: the PDF contains no extractable text", apperr.ErrEmptyContent)
	}
	return doc, nil
}

// Truncate keeps the first MaxChars runes and drops the rest.
func (p *Pipeline) Truncate(doc Document) Excerpt {
	maxChars := p.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	ex := Excerpt{
		Text:       doc.Text,
		TextLength: utf8.RuneCountInString(doc.Text),
		Pages:      doc.Pages,
	}
	if ex.TextLength <= maxChars {
		return ex
	}

	n := 0
	for i := range doc.Text {
		if n == maxChars {
			ex.Text = doc.Text[:i]
			break
		}
		n++
	}
	ex.Truncated = true
	return ex
}

func (p *Pipeline) Summarize(ctx context.Context, ex Excerpt) (string, error) {
	return p.Summarizer.Summarize(ctx, ex.Text)
}
