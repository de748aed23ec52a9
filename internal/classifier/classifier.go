// Package classifier labels news text as FAKE or REAL using a hosted
// Hugging Face text-classification model.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"fakenews/internal/breaker"
)

const (
	TokenKey = "HUGGING_FACE_API_KEY"

	LabelFake    = "FAKE"
	LabelReal    = "REAL"
	LabelUnknown = "UNKNOWN"
)

var ErrMissingToken = errors.New(TokenKey + " not configured")

var labelMap = map[string]string{
	"FAKE":    LabelFake,
	"REAL":    LabelReal,
	"LABEL_1": LabelFake,
	"LABEL_0": LabelReal,
}

// TokenResolver yields the inference API token.
type TokenResolver interface {
	Resolve() (string, bool)
}

// Score is one label/score pair as returned by the inference API.
type Score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Result is the mapped top label plus every score the model returned.
type Result struct {
	Label  string
	Score  float64
	Scores []Score
}

func (r *Result) IsFake() bool {
	return r.Label == LabelFake
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	tokens     TokenResolver
	breaker    *breaker.Breaker
}

func NewClient(baseURL, model string, tokens TokenResolver, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		tokens:     tokens,
	}
}

// WithBreaker guards calls to the inference API with b.
func (c *Client) WithBreaker(b *breaker.Breaker) *Client {
	c.breaker = b
	return c
}

// Classify sends text to the model and maps its top label.
func (c *Client) Classify(ctx context.Context, text string) (*Result, error) {
	token, ok := c.tokens.Resolve()
	if !ok {
		return nil, ErrMissingToken
	}
	if c.breaker == nil {
		return c.classify(ctx, token, text)
	}
	var res *Result
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = c.classify(ctx, token, text)
		return err
	})
	if errors.Is(err, breaker.ErrOpen) || errors.Is(err, breaker.ErrTooManyRequests) {
		log.Printf("[Classifier] Rejected by breaker (%s, %d rejections so far)", c.breaker.State(), c.breaker.Rejections())
	}
	return res, err
}

func (c *Client) classify(ctx context.Context, token, text string) (*Result, error) {
	jsonData, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	url := c.baseURL + "/" + c.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[Classifier] HF classification error (%d): %s", resp.StatusCode, body)
		return nil, fmt.Errorf("hugging face API error: %s", strings.TrimSpace(string(body)))
	}

	result := parseScores(body)
	log.Printf("[Classifier] %s -> %s (%.3f) in %s", c.model, result.Label, result.Score, time.Since(start))
	return result, nil
}

// parseScores accepts [[{label,score}...]] and the flat [{label,score}...]
// variant. Anything else yields UNKNOWN with score 0.
func parseScores(body []byte) *Result {
	var scores []Score

	var nested [][]Score
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		scores = nested[0]
	} else {
		var flat []Score
		if err := json.Unmarshal(body, &flat); err == nil {
			scores = flat
		}
	}

	if len(scores) == 0 {
		return &Result{Label: LabelUnknown}
	}
	top := scores[0]
	return &Result{
		Label:  MapLabel(top.Label),
		Score:  top.Score,
		Scores: scores,
	}
}

// MapLabel normalizes raw model labels; unknown labels pass through.
func MapLabel(raw string) string {
	if mapped, ok := labelMap[raw]; ok {
		return mapped
	}
	return raw
}
