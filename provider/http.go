package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/korjavin/alphaquizbot/metrics"
	"github.com/korjavin/alphaquizbot/models"
)

const (
	randomQuestionPath = "/aeronautical-alphabet/quiz/random"
	alphabetPath       = "/aeronautical-alphabet"
	apiTimeout         = 15 * time.Second
	maxBodyLog         = 300
)

// HTTPClient talks to the remote aeronautical alphabet API
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewHTTPClient creates a client for the API at baseURL. token is sent as a
// bearer token when not empty.
func NewHTTPClient(baseURL, token string, log logrus.FieldLogger, m *metrics.Metrics) *HTTPClient {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: apiTimeout},
		log:     log.WithField("component", "question_api"),
		metrics: m,
	}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// FetchRandomQuestion requests one random quiz question
func (c *HTTPClient) FetchRandomQuestion(ctx context.Context) (*models.Question, error) {
	var q models.Question
	if err := c.get(ctx, randomQuestionPath, "quiz_random", &q); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid question %q: %w", q.ID, err)
	}
	return &q, nil
}

// Alphabet requests the flashcard entries
func (c *HTTPClient) Alphabet(ctx context.Context) ([]models.AlphabetEntry, error) {
	var entries []models.AlphabetEntry
	if err := c.get(ctx, alphabetPath, "alphabet", &entries); err != nil {
		return nil, err
	}
	valid := entries[:0]
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			c.log.WithError(err).WithField("letter", e.Letter).Warn("Skipping invalid alphabet entry")
			continue
		}
		valid = append(valid, e)
	}
	return valid, nil
}

func (c *HTTPClient) get(ctx context.Context, path, endpoint string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)
	c.metrics.ObserveProvider(endpoint, elapsed.Seconds())
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.log.WithField("elapsed", elapsed).Warn("Question API request timed out")
		}
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"path":    path,
		"status":  resp.StatusCode,
		"elapsed": elapsed,
	}).Debug("Question API responded")

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, truncate(string(body), maxBodyLog))
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if !envelope.Success {
		if envelope.Message != "" {
			return fmt.Errorf("API responded with success=false: %s", envelope.Message)
		}
		return errors.New("API responded with success=false")
	}
	if len(envelope.Data) == 0 {
		return errors.New("API response has no data")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
