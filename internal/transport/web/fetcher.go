// Package web fetches HTML pages and reduces them to plain text.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/domain/chunking"
)

// maxBodyBytes caps the page size read from a source.
const maxBodyBytes = 10 << 20

// Fetcher downloads a page and extracts its visible text.
type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// Config holds fetcher settings.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *zap.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Fetch retrieves url and returns its text with whitespace collapsed.
// Any transport or status failure is wrapped in domain.ErrFetchFailed.
func (f *Fetcher) Fetch(ctx context.Context, url string) (domain.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: build request: %w", domain.ErrFetchFailed, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: GET %s: %w", domain.ErrFetchFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Document{}, fmt.Errorf("%w: GET %s: %s", domain.ErrFetchFailed, url, resp.Status)
	}

	text, err := ExtractText(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %s: %w", domain.ErrFetchFailed, url, err)
	}

	f.logger.Debug("Page fetched",
		zap.String("url", url),
		zap.Int("chars", len(text)),
		zap.Duration("duration", time.Since(start)),
	)

	return domain.Document{Source: url, Text: text}, nil
}

// ExtractText parses HTML, drops script and style elements and joins the
// remaining text nodes with single spaces.
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript, template").Remove()

	var b strings.Builder
	collectText(doc.Selection, &b)
	return chunking.Normalize(b.String()), nil
}

func collectText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "#text":
			b.WriteString(s.Text())
			b.WriteByte(' ')
		case "#comment":
		default:
			collectText(s, b)
		}
	})
}
