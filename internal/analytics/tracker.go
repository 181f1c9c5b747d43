package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"folio/internal/apiclient"
	"folio/internal/core"
)

// Well-known event names and categories.
const (
	EventPageView   = "page_view"
	EventClick      = "click"
	EventDownload   = "download"
	EventError      = "error"
	EventTiming     = "timing"
	EventConversion = "conversion"
	EventCustom     = "custom"

	CategoryNavigation  = "navigation"
	CategoryEngagement  = "engagement"
	CategoryForm        = "form"
	CategoryError       = "error"
	CategoryPerformance = "performance"
	CategoryCustom      = "custom"
)

const (
	eventsEndpoint    = "/api/analytics/events"
	pageViewsEndpoint = "/api/analytics/pageviews"

	// DefaultFlushInterval is how often queued events are sent.
	DefaultFlushInterval = 30 * time.Second

	beaconTimeout = 5 * time.Second
)

// TrackerConfig controls when events are recorded.
type TrackerConfig struct {
	// DevMode records every event regardless of consent and sampling, and logs each one.
	DevMode bool
	// SampleRate in [0,1] is the share of events kept once consent is given.
	SampleRate float64
	// Consent must be true before events are recorded or sent.
	Consent bool
	// FlushInterval is the period of the background flush.
	FlushInterval time.Duration
	// UserAgent is attached to recorded page views.
	UserAgent string
}

// DefaultTrackerConfig samples everything and waits for consent.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		SampleRate:    1.0,
		FlushInterval: DefaultFlushInterval,
		UserAgent:     "folio",
	}
}

// TrackerConfigPatch changes selected settings. Nil fields are left alone.
type TrackerConfigPatch struct {
	DevMode    *bool
	SampleRate *float64
	Consent    *bool
}

// Tracker queues analytics events and ships them to the server in batches.
type Tracker struct {
	api    *apiclient.Client
	logger *slog.Logger

	mu        sync.Mutex
	config    TrackerConfig
	queue     []core.AnalyticsEvent
	pageViews []core.PageView
	sessionID string
	userID    string

	now  func() time.Time
	roll func() float64

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	// stopped is guarded by mu; no flush goroutine is added once it is set.
	stopped bool
	wg      sync.WaitGroup
}

// NewTracker creates a tracker with fresh session and user ids. Call Start to
// enable the periodic flush.
func NewTracker(api *apiclient.Client, cfg TrackerConfig, logger *slog.Logger) *Tracker {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		api:       api,
		logger:    logger,
		config:    cfg,
		sessionID: "session-" + uuid.NewString(),
		userID:    "user-" + uuid.NewString(),
		now:       time.Now,
		roll:      rand.Float64,
		stop:      make(chan struct{}),
	}
}

// SessionID returns the id sent with every batch.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// UserID returns the current user id.
func (t *Tracker) UserID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.userID
}

// Pending returns the number of queued events and page views.
func (t *Tracker) Pending() (events, pageViews int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue), len(t.pageViews)
}

// SetConfig applies patch.
func (t *Tracker) SetConfig(patch TrackerConfigPatch) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if patch.DevMode != nil {
		t.config.DevMode = *patch.DevMode
	}
	if patch.SampleRate != nil {
		t.config.SampleRate = *patch.SampleRate
	}
	if patch.Consent != nil {
		t.config.Consent = *patch.Consent
	}
}

// SetConsent records the visitor's choice. Granting consent flushes the queue
// in the background; revoking it discards everything queued.
func (t *Tracker) SetConsent(consent bool) {
	t.mu.Lock()
	t.config.Consent = consent
	t.mu.Unlock()

	if consent {
		t.flushAsync()
		return
	}
	t.ClearData()
}

// ClearData drops queued events and page views and rotates the user id.
func (t *Tracker) ClearData() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = nil
	t.pageViews = nil
	t.userID = "user-" + uuid.NewString()
}

// shouldTrack must be called with t.mu held.
func (t *Tracker) shouldTrack() bool {
	if t.config.DevMode {
		return true
	}
	if !t.config.Consent {
		return false
	}
	return t.roll() <= t.config.SampleRate
}

func (t *Tracker) timestamp() string {
	return t.now().UTC().Format(core.TimestampLayout)
}

// TrackEvent queues one event. Events in the error category and conversion
// events trigger an immediate background flush.
func (t *Tracker) TrackEvent(event, category, action, label string, value *float64, custom map[string]any) {
	t.mu.Lock()
	if !t.shouldTrack() {
		t.mu.Unlock()
		return
	}
	t.enqueueLocked(core.AnalyticsEvent{
		Event:      event,
		Category:   category,
		Action:     action,
		Label:      label,
		Value:      value,
		Timestamp:  t.timestamp(),
		Properties: compact(custom),
	})
	t.mu.Unlock()

	if category == CategoryError || event == EventConversion {
		t.flushAsync()
	}
}

func (t *Tracker) enqueueLocked(e core.AnalyticsEvent) {
	t.queue = append(t.queue, e)
	if t.config.DevMode {
		t.logger.Debug("analytics event",
			"event", e.Event,
			"category", e.Category,
			"action", e.Action,
			"label", e.Label,
		)
	}
}

// compact drops empty string values so optional fields are omitted on the wire.
func compact(custom map[string]any) map[string]any {
	if len(custom) == 0 {
		return nil
	}
	out := make(map[string]any, len(custom))
	for k, v := range custom {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		if v == nil {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// TrackPageView records a page view and a matching page_view event.
func (t *Tracker) TrackPageView(page, title, referrer string) {
	t.mu.Lock()
	if !t.shouldTrack() {
		t.mu.Unlock()
		return
	}
	ts := t.timestamp()
	t.pageViews = append(t.pageViews, core.PageView{
		Page:      page,
		Title:     title,
		Referrer:  referrer,
		UserAgent: t.config.UserAgent,
		Timestamp: ts,
	})
	t.enqueueLocked(core.AnalyticsEvent{
		Event:      EventPageView,
		Category:   CategoryNavigation,
		Action:     page,
		Timestamp:  ts,
		Properties: map[string]any{"page": page, "title": title},
	})
	t.mu.Unlock()
}

// TrackClick records a click on element.
func (t *Tracker) TrackClick(element, location string) {
	t.TrackEvent(EventClick, CategoryEngagement, "click", element, nil, map[string]any{"location": location})
}

// TrackDownload records a file download.
func (t *Tracker) TrackDownload(filename, fileType string) {
	t.TrackEvent(EventDownload, CategoryEngagement, "file_download", filename, nil, map[string]any{"type": fileType})
}

// TrackFormSubmission records the outcome of a form submission.
func (t *Tracker) TrackFormSubmission(formName string, success bool) {
	event := "form_submit_error"
	if success {
		event = "form_submit_success"
	}
	t.TrackEvent(event, CategoryForm, "submit", formName, nil, nil)
}

// TrackError records err and flushes immediately.
func (t *Tracker) TrackError(err error, where, url string) {
	if err == nil {
		return
	}
	t.TrackEvent(EventError, CategoryError, errorName(err), err.Error(), nil, map[string]any{
		"context": where,
		"url":     url,
	})
}

// errorName is the error's dynamic type without pointer or package, e.g. "Error" for *apiclient.Error.
func errorName(err error) string {
	name := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "Error"
	}
	return name
}

// TrackTiming records a duration in milliseconds. An empty category means "performance".
func (t *Tracker) TrackTiming(name string, d time.Duration, category string) {
	if category == "" {
		category = CategoryPerformance
	}
	ms := float64(d) / float64(time.Millisecond)
	t.TrackEvent(EventTiming, category, name, "", &ms, nil)
}

// TrackCustomEvent queues e with "custom" filled in for any missing name,
// category or action. The timestamp is always set to now.
func (t *Tracker) TrackCustomEvent(e core.AnalyticsEvent) {
	if e.Event == "" {
		e.Event = EventCustom
	}
	if e.Category == "" {
		e.Category = CategoryCustom
	}
	if e.Action == "" {
		e.Action = EventCustom
	}
	e.Properties = maps.Clone(e.Properties)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.shouldTrack() {
		return
	}
	e.Timestamp = t.timestamp()
	t.enqueueLocked(e)
}

// Flush sends every queued event in one batch. It does nothing without consent
// or when the queue is empty. On failure the batch is put back at the front of
// the queue.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	if !t.config.Consent || len(t.queue) == 0 {
		t.mu.Unlock()
		return nil
	}
	events := t.queue
	t.queue = nil
	batch := core.AnalyticsBatch{
		Events:    events,
		SessionID: t.sessionID,
		UserID:    t.userID,
		Timestamp: t.timestamp(),
	}
	t.mu.Unlock()

	if _, err := t.api.Post(ctx, eventsEndpoint, batch); err != nil {
		t.mu.Lock()
		t.queue = append(events, t.queue...)
		t.mu.Unlock()
		t.logger.Warn("failed to flush analytics events", "count", len(events), "error", err)
		return fmt.Errorf("flush analytics events: %w", err)
	}

	t.logger.Debug("flushed analytics events", "count", len(events))
	return nil
}

// FlushPageViews sends queued page views, with the same consent and requeue rules as Flush.
func (t *Tracker) FlushPageViews(ctx context.Context) error {
	t.mu.Lock()
	if !t.config.Consent || len(t.pageViews) == 0 {
		t.mu.Unlock()
		return nil
	}
	views := t.pageViews
	t.pageViews = nil
	batch := core.PageViewBatch{
		PageViews: views,
		SessionID: t.sessionID,
		UserID:    t.userID,
	}
	t.mu.Unlock()

	if _, err := t.api.Post(ctx, pageViewsEndpoint, batch); err != nil {
		t.mu.Lock()
		t.pageViews = append(views, t.pageViews...)
		t.mu.Unlock()
		t.logger.Warn("failed to flush page views", "count", len(views), "error", err)
		return fmt.Errorf("flush page views: %w", err)
	}
	return nil
}

func (t *Tracker) flushAsync() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()
	go func() {
		defer t.wg.Done()
		_ = t.Flush(context.Background())
	}()
}

// Start launches the periodic flush. Calling it again has no effect.
func (t *Tracker) Start() {
	t.startOnce.Do(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.stopped {
			return
		}
		t.wg.Add(1)
		go t.flushLoop()
	})
}

func (t *Tracker) flushLoop() {
	defer t.wg.Done()

	t.mu.Lock()
	interval := t.config.FlushInterval
	t.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = t.Flush(context.Background())
		case <-t.stop:
			return
		}
	}
}

// Stop ends the periodic flush and waits for in-flight flushes.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.stopped = true
		t.mu.Unlock()
		close(t.stop)
	})
	t.wg.Wait()
}

// Close stops the tracker and makes one best-effort attempt to deliver what is
// still queued. The attempt is not retried and its result is ignored.
func (t *Tracker) Close(ctx context.Context) error {
	t.Stop()

	t.mu.Lock()
	if len(t.queue) == 0 || (!t.config.Consent && !t.config.DevMode) {
		t.mu.Unlock()
		return nil
	}
	batch := core.AnalyticsBatch{
		Events:    t.queue,
		SessionID: t.sessionID,
		UserID:    t.userID,
		Timestamp: t.timestamp(),
	}
	t.queue = nil
	t.mu.Unlock()

	_, err := t.api.Post(ctx, eventsEndpoint, batch,
		apiclient.WithRetries(0),
		apiclient.WithTimeout(beaconTimeout),
	)
	if err != nil {
		t.logger.Debug("analytics beacon failed", "count", len(batch.Events), "error", err)
	}
	return nil
}
