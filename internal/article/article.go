// Package article turns a news URL into plain text for classification.
package article

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
)

var ErrNoText = errors.New("no readable text found")

// Article is the extracted content of a fetched page or document.
type Article struct {
	URL   string
	Title string
	Text  string
}

// Fetcher downloads and extracts article text.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxSizeMB  int
}

func NewFetcher(timeout time.Duration, userAgent string, maxSizeMB int) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxSizeMB: maxSizeMB,
	}
}

// Fetch retrieves rawURL and extracts its main text. HTML goes through
// readability with a goquery fallback; PDFs are read page by page.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Article, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return nil, fmt.Errorf("invalid article url %q", rawURL)
	}

	data, contentType, err := f.download(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	var art *Article
	switch {
	case strings.Contains(contentType, "application/pdf"):
		log.Printf("[Article] Detected PDF at %s, extracting text...", rawURL)
		art, err = extractPDF(data, parsedURL)
	case strings.Contains(contentType, "text/html"), strings.Contains(contentType, "application/xhtml"):
		art, err = extractHTML(data, parsedURL)
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(art.Text) == "" {
		return nil, ErrNoText
	}
	return art, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	maxBytes := int64(f.maxSizeMB) * 1024 * 1024
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("content exceeds size limit of %dMB", f.maxSizeMB)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func extractHTML(data []byte, pageURL *url.URL) (*Article, error) {
	parsed, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err == nil && strings.TrimSpace(parsed.TextContent) != "" {
		return &Article{
			URL:   pageURL.String(),
			Title: strings.TrimSpace(parsed.Title),
			Text:  normalizeSpace(parsed.TextContent),
		}, nil
	}
	if err != nil {
		log.Printf("[Article] readability failed for %s, falling back to goquery: %v", pageURL, err)
	}
	return extractWithGoquery(data, pageURL)
}

// extractWithGoquery prefers <article>, then <main>, then <body>.
func extractWithGoquery(data []byte, pageURL *url.URL) (*Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, nav, aside, footer, header, iframe, noscript, form").Remove()

	var content *goquery.Selection
	if a := doc.Find("article").First(); a.Length() > 0 {
		content = a
	} else if m := doc.Find("main").First(); m.Length() > 0 {
		content = m
	} else {
		content = doc.Find("body")
	}

	var parts []string
	content.Find("h1, h2, h3, p, li, blockquote").Each(func(_ int, s *goquery.Selection) {
		if txt := strings.TrimSpace(s.Text()); txt != "" {
			parts = append(parts, txt)
		}
	})
	text := strings.Join(parts, "\n")
	if text == "" {
		text = content.Text()
	}
	return &Article{URL: pageURL.String(), Title: title, Text: normalizeSpace(text)}, nil
}

func extractPDF(data []byte, docURL *url.URL) (*Article, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("failed to extract PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return nil, fmt.Errorf("failed to read PDF text: %w", err)
	}
	return &Article{
		URL:   docURL.String(),
		Title: "PDF Document: " + docURL.Path,
		Text:  normalizeSpace(buf.String()),
	}, nil
}

// normalizeSpace collapses runs of blank lines and trims every line.
func normalizeSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
