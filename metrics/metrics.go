package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the quiz. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	QuestionsFetched  *prometheus.CounterVec
	FetchFailures     prometheus.Counter
	HistoryResets     prometheus.Counter
	PersistFailures   prometheus.Counter
	Answers           *prometheus.CounterVec
	SessionsStarted   prometheus.Counter
	SessionsEnded     *prometheus.CounterVec
	FinalStreak       prometheus.Histogram
	ProviderLatencies *prometheus.HistogramVec
}

// New registers the quiz collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QuestionsFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "alphaquiz",
				Name:      "questions_fetched_total",
				Help:      "Questions received from the provider by outcome",
			},
			[]string{"outcome"}, // accepted, duplicate, reset
		),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "alphaquiz",
			Name:      "fetch_failures_total",
			Help:      "Failed question fetches",
		}),
		HistoryResets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "alphaquiz",
			Name:      "history_resets_total",
			Help:      "Times the used-question history was cleared",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "alphaquiz",
			Name:      "history_persist_failures_total",
			Help:      "Failed writes of the used-question history",
		}),
		Answers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "alphaquiz",
				Name:      "answers_total",
				Help:      "Evaluated answers by result",
			},
			[]string{"result"}, // correct, incorrect, timeout
		),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "alphaquiz",
			Name:      "sessions_started_total",
			Help:      "Quiz sessions started",
		}),
		SessionsEnded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "alphaquiz",
				Name:      "sessions_ended_total",
				Help:      "Quiz sessions ended by reason",
			},
			[]string{"reason"},
		),
		FinalStreak: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "alphaquiz",
			Name:      "final_streak",
			Help:      "Streak emitted when a session ends",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		ProviderLatencies: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "alphaquiz",
				Name:      "provider_request_duration_seconds",
				Help:      "Question API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
	}
}

func (m *Metrics) QuestionOutcome(outcome string) {
	if m == nil {
		return
	}
	m.QuestionsFetched.WithLabelValues(outcome).Inc()
	if outcome == "reset" {
		m.HistoryResets.Inc()
	}
}

func (m *Metrics) FetchFailed() {
	if m == nil {
		return
	}
	m.FetchFailures.Inc()
}

func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) Answer(result string) {
	if m == nil {
		return
	}
	m.Answers.WithLabelValues(result).Inc()
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}

func (m *Metrics) SessionEnded(reason string, streak int) {
	if m == nil {
		return
	}
	m.SessionsEnded.WithLabelValues(reason).Inc()
	m.FinalStreak.Observe(float64(streak))
}

func (m *Metrics) ObserveProvider(endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.ProviderLatencies.WithLabelValues(endpoint).Observe(seconds)
}
