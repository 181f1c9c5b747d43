package analytics

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"folio/internal/core"
)

const (
	msgInvalidJSON     = "Invalid JSON in request body"
	msgInvalidRequest  = "Invalid analytics request"
	msgInvalidPageView = "Invalid page view request"
)

func invalid(msg string, err error) error {
	return core.NewInvalidRequestError(msg, err)
}

func isString(r gjson.Result) bool {
	return r.Type == gjson.String
}

func isNonEmptyString(r gjson.Result) bool {
	return r.Type == gjson.String && r.Str != ""
}

// optionalString accepts a missing, null or string member.
func optionalString(r gjson.Result) bool {
	return !r.Exists() || r.Type == gjson.Null || r.Type == gjson.String
}

// ParseBatch checks and decodes a POST /api/analytics/events body. Every event
// needs non-empty event, category and action strings and a timestamp string.
func ParseBatch(body []byte) (core.AnalyticsBatch, error) {
	if !gjson.ValidBytes(body) {
		return core.AnalyticsBatch{}, invalid(msgInvalidJSON, nil)
	}

	root := gjson.ParseBytes(body)
	events := root.Get("events")
	if !root.IsObject() ||
		!events.IsArray() ||
		!isNonEmptyString(root.Get("sessionId")) ||
		!isString(root.Get("timestamp")) ||
		!optionalString(root.Get("userId")) {
		return core.AnalyticsBatch{}, invalid(msgInvalidRequest, nil)
	}

	valid := true
	events.ForEach(func(_, e gjson.Result) bool {
		valid = e.IsObject() &&
			isNonEmptyString(e.Get("event")) &&
			isNonEmptyString(e.Get("category")) &&
			isNonEmptyString(e.Get("action")) &&
			isString(e.Get("timestamp")) &&
			optionalString(e.Get("label")) &&
			(!e.Get("value").Exists() || e.Get("value").Type == gjson.Null || e.Get("value").Type == gjson.Number)
		return valid
	})
	if !valid {
		return core.AnalyticsBatch{}, invalid(msgInvalidRequest, nil)
	}

	var batch core.AnalyticsBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return core.AnalyticsBatch{}, invalid(msgInvalidRequest, err)
	}
	if batch.Events == nil {
		batch.Events = []core.AnalyticsEvent{}
	}
	return batch, nil
}

// ParsePageViews checks and decodes a POST /api/analytics/pageviews body.
func ParsePageViews(body []byte) (core.PageViewBatch, error) {
	if !gjson.ValidBytes(body) {
		return core.PageViewBatch{}, invalid(msgInvalidJSON, nil)
	}

	root := gjson.ParseBytes(body)
	views := root.Get("pageViews")
	if !root.IsObject() ||
		!views.IsArray() ||
		!isNonEmptyString(root.Get("sessionId")) ||
		!optionalString(root.Get("userId")) {
		return core.PageViewBatch{}, invalid(msgInvalidPageView, nil)
	}

	valid := true
	views.ForEach(func(_, v gjson.Result) bool {
		valid = v.IsObject() &&
			isNonEmptyString(v.Get("page")) &&
			isString(v.Get("timestamp")) &&
			optionalString(v.Get("title")) &&
			optionalString(v.Get("referrer")) &&
			optionalString(v.Get("userAgent"))
		return valid
	})
	if !valid {
		return core.PageViewBatch{}, invalid(msgInvalidPageView, nil)
	}

	var batch core.PageViewBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return core.PageViewBatch{}, invalid(msgInvalidPageView, err)
	}
	return batch, nil
}

// PageViewEvent converts a page view into the page_view event stored alongside tracked events.
func PageViewEvent(pv core.PageView) core.AnalyticsEvent {
	props := map[string]any{"page": pv.Page, "title": pv.Title}
	if pv.Referrer != "" {
		props["referrer"] = pv.Referrer
	}
	if pv.UserAgent != "" {
		props["userAgent"] = pv.UserAgent
	}
	return core.AnalyticsEvent{
		Event:      EventPageView,
		Category:   CategoryNavigation,
		Action:     pv.Page,
		Timestamp:  pv.Timestamp,
		Properties: props,
	}
}
