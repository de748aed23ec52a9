// Package detector runs the full check for a submitted news text: classify,
// explain when fake, and record the result in the user's history.
package detector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"fakenews/internal/article"
	"fakenews/internal/classifier"
	"fakenews/internal/detection"
	"fakenews/internal/explain"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

var (
	ErrEmptyText      = errors.New("news text is required")
	ErrArticle        = errors.New("article unavailable")
	ErrClassification = errors.New("classification failed")
)

type Classifier interface {
	Classify(ctx context.Context, text string) (*classifier.Result, error)
}

// Explainer produces an explanation or a typed failure.
type Explainer interface {
	Generate(ctx context.Context, text string) (string, error)
	ModelName() string
}

type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (*article.Article, error)
}

type Store interface {
	Create(ctx context.Context, d *detection.Detection) error
}

type ExplanationCache interface {
	Get(ctx context.Context, model, text string) (string, bool)
	Set(ctx context.Context, model, text, explanation string)
}

// Input is either raw text or a URL to fetch it from. Text wins when both
// are set.
type Input struct {
	Text string
	URL  string
}

type Result struct {
	ID          uint    `json:"id"`
	PublicID    string  `json:"public_id"`
	Label       string  `json:"label"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
	SourceURL   string  `json:"source_url,omitempty"`
	Title       string  `json:"title,omitempty"`
}

type Detector struct {
	classifier Classifier
	explainer  Explainer
	store      Store
	fetcher    ArticleFetcher
	cache      ExplanationCache
	sanitizer  *bluemonday.Policy
}

// New wires a detector. fetcher and cache may be nil.
func New(c Classifier, e Explainer, store Store, fetcher ArticleFetcher, cache ExplanationCache) *Detector {
	return &Detector{
		classifier: c,
		explainer:  e,
		store:      store,
		fetcher:    fetcher,
		cache:      cache,
		sanitizer:  bluemonday.StrictPolicy(),
	}
}

func (d *Detector) Detect(ctx context.Context, userID uint, in Input) (*Result, error) {
	reqID := uuid.New().String()
	start := time.Now()

	text := in.Text
	var sourceURL, title string
	if strings.TrimSpace(text) == "" && in.URL != "" {
		if d.fetcher == nil {
			return nil, fmt.Errorf("%w: fetching is not configured", ErrArticle)
		}
		art, err := d.fetcher.Fetch(ctx, in.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrArticle, err)
		}
		text = art.Text
		sourceURL = art.URL
		title = art.Title
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	log.Printf("[Detector] %s: classifying %d chars for user %d", reqID, len(text), userID)
	cls, err := d.classifier.Classify(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassification, err)
	}

	var explanation string
	if cls.IsFake() {
		explanation = d.explain(ctx, reqID, text)
	}

	rec := &detection.Detection{
		UserID:      userID,
		NewsText:    text,
		SourceURL:   sourceURL,
		Title:       title,
		Label:       cls.Label,
		Score:       cls.Score,
		Explanation: explanation,
	}
	if len(cls.Scores) > 0 {
		if raw, err := json.Marshal(cls.Scores); err == nil {
			rec.Scores = raw
		}
	}
	if err := d.store.Create(ctx, rec); err != nil {
		return nil, err
	}

	log.Printf("[Detector] %s: %s (%.3f) saved as detection %d in %s",
		reqID, cls.Label, cls.Score, rec.ID, time.Since(start))
	return &Result{
		ID:          rec.ID,
		PublicID:    rec.PublicID,
		Label:       rec.Label,
		Score:       rec.Score,
		Explanation: rec.Explanation,
		SourceURL:   rec.SourceURL,
		Title:       rec.Title,
	}, nil
}

// explain never fails: cache hit, fresh explanation, or the failure text.
// Only successful explanations are cached.
func (d *Detector) explain(ctx context.Context, reqID, text string) string {
	model := d.explainer.ModelName()
	if d.cache != nil {
		if cached, ok := d.cache.Get(ctx, model, text); ok {
			log.Printf("[Detector] %s: explanation cache hit", reqID)
			return cached
		}
	}
	out, err := d.explainer.Generate(ctx, text)
	if err != nil {
		log.Printf("[Detector] %s: explanation failed: %v", reqID, err)
		return explain.Message(err)
	}
	out = d.stripMarkup(out)
	if d.cache != nil {
		d.cache.Set(ctx, model, text, out)
	}
	return out
}

// stripMarkup drops any HTML the model produced. Sanitize escapes text, so
// entities are decoded again to keep the explanation plain.
func (d *Detector) stripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(d.sanitizer.Sanitize(s)))
}
