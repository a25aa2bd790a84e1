package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korjavin/alphaquizbot/logging"
	"github.com/korjavin/alphaquizbot/metrics"
	"github.com/korjavin/alphaquizbot/models"
)

type seenRequest struct {
	mu     sync.Mutex
	path   string
	header http.Header
}

func (s *seenRequest) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

func (s *seenRequest) Header(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header.Get(key)
}

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *seenRequest) {
	t.Helper()
	last := &seenRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.mu.Lock()
		last.path = r.URL.Path
		last.header = r.Header.Clone()
		last.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, last
}

func TestFetchRandomQuestion(t *testing.T) {
	srv, last := newTestServer(t, http.StatusOK, `{
		"success": true,
		"data": {
			"id": 12,
			"question": "What is the code word for K?",
			"imageUrl": "https://cdn.example.com/k.svg",
			"options": ["Kilo", "Lima", "Mike"],
			"correctAnswer": "Kilo"
		}
	}`)

	c := NewHTTPClient(srv.URL+"/", "secret", logging.Discard(), metrics.New(prometheus.NewRegistry()))
	q, err := c.FetchRandomQuestion(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.QuestionID("12"), q.ID)
	assert.Equal(t, "Kilo", q.CorrectAnswer)
	assert.Len(t, q.Options, 3)
	assert.Equal(t, "https://cdn.example.com/k.svg", q.ImageURL)
	assert.Equal(t, randomQuestionPath, last.Path())
	assert.Equal(t, "Bearer secret", last.Header("Authorization"))
}

func TestFetchRandomQuestionErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "success false", status: http.StatusOK, body: `{"success": false, "message": "maintenance"}`},
		{name: "not json", status: http.StatusOK, body: `<html>`},
		{name: "missing data", status: http.StatusOK, body: `{"success": true}`},
		{
			name:   "answer not among options",
			status: http.StatusOK,
			body:   `{"success": true, "data": {"id": 1, "question": "?", "options": ["Alfa"], "correctAnswer": "Bravo"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			c := NewHTTPClient(srv.URL, "", logging.Discard(), nil)
			q, err := c.FetchRandomQuestion(context.Background())
			assert.Error(t, err)
			assert.Nil(t, q)
		})
	}
}

func TestFetchWithoutTokenSendsNoAuthorization(t *testing.T) {
	srv, last := newTestServer(t, http.StatusOK, `{"success": true, "data": {"id": "a", "question": "?", "options": ["Alfa"], "correctAnswer": "Alfa"}}`)
	c := NewHTTPClient(srv.URL, "", logging.Discard(), nil)

	_, err := c.FetchRandomQuestion(context.Background())
	require.NoError(t, err)
	assert.Empty(t, last.Header("Authorization"))
}

func TestHTTPAlphabet(t *testing.T) {
	srv, last := newTestServer(t, http.StatusOK, `{
		"success": true,
		"data": [
			{"idAlphabet": 1, "letter": "A", "code": "Alfa", "pronunciation": "AL-FAH", "audioUrl": null},
			{"idAlphabet": 2, "letter": "", "code": "Bravo"}
		]
	}`)
	c := NewHTTPClient(srv.URL, "", logging.Discard(), nil)

	entries, err := c.Alphabet(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Alfa", entries[0].Code)
	assert.Equal(t, alphabetPath, last.Path())
}

func TestFetchHonoursCancelledContext(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{}`)
	c := NewHTTPClient(srv.URL, "", logging.Discard(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchRandomQuestion(ctx)
	assert.Error(t, err)
}
