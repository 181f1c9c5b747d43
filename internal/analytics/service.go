package analytics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"folio/internal/core"
)

// Metrics counts ingested analytics. A nil *Metrics records nothing.
type Metrics struct {
	eventsTotal *prometheus.CounterVec
	sessions    prometheus.Gauge
}

// NewMetrics registers the analytics collectors on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	return &Metrics{
		eventsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_analytics_events_ingested_total",
				Help: "Analytics events accepted by the server",
			},
			[]string{"source"},
		),
		sessions: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "folio_analytics_sessions",
				Help: "Session keys currently held in the event store",
			},
		),
	}
}

func (m *Metrics) record(source string, n int, summary core.AnalyticsSummary) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(source).Add(float64(n))
	m.sessions.Set(float64(summary.ActiveSessions))
}

// Service is the server side of analytics ingestion.
type Service struct {
	store   *Store
	metrics *Metrics
	logger  *slog.Logger
}

// NewService creates a Service on store. metrics may be nil.
func NewService(store *Store, metrics *Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, metrics: metrics, logger: logger}
}

// Ingest validates and stores an event batch.
func (s *Service) Ingest(ctx context.Context, body []byte) (*core.IngestResult, error) {
	batch, err := ParseBatch(body)
	if err != nil {
		return nil, err
	}

	s.store.Append(SessionKey(batch.SessionID, batch.UserID), batch.Events)
	s.metrics.record("events", len(batch.Events), s.store.Summary())

	s.logger.Info("analytics events received",
		"session_id", batch.SessionID,
		"user_id", batch.UserID,
		"event_count", len(batch.Events),
		"request_id", core.GetRequestID(ctx),
	)

	return &core.IngestResult{Processed: len(batch.Events), SessionID: batch.SessionID}, nil
}

// IngestPageViews validates a page view batch and stores each view as a page_view event.
func (s *Service) IngestPageViews(ctx context.Context, body []byte) (*core.IngestResult, error) {
	batch, err := ParsePageViews(body)
	if err != nil {
		return nil, err
	}

	events := make([]core.AnalyticsEvent, 0, len(batch.PageViews))
	for _, pv := range batch.PageViews {
		events = append(events, PageViewEvent(pv))
	}
	s.store.Append(SessionKey(batch.SessionID, batch.UserID), events)
	s.metrics.record("pageviews", len(events), s.store.Summary())

	s.logger.Info("page views received",
		"session_id", batch.SessionID,
		"user_id", batch.UserID,
		"count", len(events),
		"request_id", core.GetRequestID(ctx),
	)

	return &core.IngestResult{Processed: len(events), SessionID: batch.SessionID}, nil
}

// Recent lists the most recent stored events.
func (s *Service) Recent() core.RecentEvents {
	events := s.store.Recent()
	return core.RecentEvents{Events: events, Count: len(events)}
}

// Summary reports stored volume.
func (s *Service) Summary() core.AnalyticsSummary {
	return s.store.Summary()
}
