package core

import (
	"encoding/json"
	"fmt"
)

// TimestampLayout is the ISO-8601 form used for every timestamp on the wire.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ContactForm is a message submitted through the contact endpoint.
// Honeypot is a hidden field that humans leave empty.
type ContactForm struct {
	Name     string `json:"name" validate:"notblank,max=100"`
	Email    string `json:"email" validate:"contains=@"`
	Subject  string `json:"subject" validate:"notblank,max=200"`
	Message  string `json:"message" validate:"notblank,max=2000"`
	Honeypot string `json:"honeypot,omitempty" validate:"max=0"`
}

// ContactReceipt acknowledges an accepted contact message.
type ContactReceipt struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Success   bool   `json:"success"`
}

// AnalyticsEvent is one tracked interaction. Properties carries any extra
// fields, which are flattened into the JSON object alongside the named ones.
type AnalyticsEvent struct {
	Event      string
	Category   string
	Action     string
	Label      string
	Value      *float64
	Timestamp  string
	Properties map[string]any
}

var analyticsEventKeys = map[string]bool{
	"event": true, "category": true, "action": true, "label": true, "value": true, "timestamp": true,
}

// MarshalJSON flattens Properties next to the named fields. Named fields win on conflict.
func (e AnalyticsEvent) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Properties)+6)
	for k, v := range e.Properties {
		if !analyticsEventKeys[k] {
			out[k] = v
		}
	}
	out["event"] = e.Event
	out["category"] = e.Category
	out["action"] = e.Action
	out["timestamp"] = e.Timestamp
	if e.Label != "" {
		out["label"] = e.Label
	}
	if e.Value != nil {
		out["value"] = *e.Value
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the named fields and keeps every other key in Properties.
func (e *AnalyticsEvent) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = AnalyticsEvent{}
	fields := map[string]*string{
		"event": &e.Event, "category": &e.Category, "action": &e.Action,
		"label": &e.Label, "timestamp": &e.Timestamp,
	}
	for key, msg := range raw {
		if dst, ok := fields[key]; ok {
			if string(msg) == "null" {
				continue
			}
			if err := json.Unmarshal(msg, dst); err != nil {
				return fmt.Errorf("analytics event field %q: %w", key, err)
			}
			continue
		}
		if key == "value" {
			if string(msg) == "null" {
				continue
			}
			var v float64
			if err := json.Unmarshal(msg, &v); err != nil {
				return fmt.Errorf("analytics event field %q: %w", key, err)
			}
			e.Value = &v
			continue
		}
		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			return err
		}
		if e.Properties == nil {
			e.Properties = make(map[string]any)
		}
		e.Properties[key] = v
	}
	return nil
}

// AnalyticsBatch is the body of POST /api/analytics/events.
type AnalyticsBatch struct {
	Events    []AnalyticsEvent `json:"events"`
	SessionID string           `json:"sessionId"`
	UserID    string           `json:"userId,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// PageView records one page navigation.
type PageView struct {
	Page      string `json:"page"`
	Title     string `json:"title"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"userAgent"`
	Timestamp string `json:"timestamp"`
}

// PageViewBatch is the body of POST /api/analytics/pageviews.
type PageViewBatch struct {
	PageViews []PageView `json:"pageViews"`
	SessionID string     `json:"sessionId"`
	UserID    string     `json:"userId,omitempty"`
}

// IngestResult is returned after analytics events are stored.
type IngestResult struct {
	Processed int    `json:"processed"`
	SessionID string `json:"sessionId"`
}

// RecentEvents lists the most recently stored analytics events.
type RecentEvents struct {
	Events []AnalyticsEvent `json:"events"`
	Count  int              `json:"count"`
}

// AnalyticsSummary reports stored analytics volume.
type AnalyticsSummary struct {
	TotalEvents    int `json:"totalEvents"`
	ActiveSessions int `json:"activeSessions"`
}

// PersonalInfo is the resume header.
type PersonalInfo struct {
	Name     string `json:"name" yaml:"name"`
	Title    string `json:"title" yaml:"title"`
	Email    string `json:"email" yaml:"email"`
	Phone    string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Location string `json:"location" yaml:"location"`
	Website  string `json:"website,omitempty" yaml:"website,omitempty"`
	LinkedIn string `json:"linkedin,omitempty" yaml:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty" yaml:"github,omitempty"`
	Summary  string `json:"summary" yaml:"summary"`
	Avatar   string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
}

// Experience is one position held. Dates are ISO-8601 (YYYY-MM-DD).
type Experience struct {
	ID           string   `json:"id" yaml:"id"`
	Company      string   `json:"company" yaml:"company"`
	Position     string   `json:"position" yaml:"position"`
	StartDate    string   `json:"startDate" yaml:"startDate"`
	EndDate      string   `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	Current      bool     `json:"current" yaml:"current"`
	Description  string   `json:"description" yaml:"description"`
	Technologies []string `json:"technologies" yaml:"technologies"`
	Achievements []string `json:"achievements" yaml:"achievements"`
}

// Education is one degree or program.
type Education struct {
	ID          string   `json:"id" yaml:"id"`
	Institution string   `json:"institution" yaml:"institution"`
	Degree      string   `json:"degree" yaml:"degree"`
	Field       string   `json:"field" yaml:"field"`
	StartDate   string   `json:"startDate" yaml:"startDate"`
	EndDate     string   `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	Current     bool     `json:"current" yaml:"current"`
	GPA         *float64 `json:"gpa,omitempty" yaml:"gpa,omitempty"`
	Honors      []string `json:"honors,omitempty" yaml:"honors,omitempty"`
}

// Project is a portfolio project.
type Project struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	Technologies []string `json:"technologies" yaml:"technologies"`
	LiveURL      string   `json:"liveUrl,omitempty" yaml:"liveUrl,omitempty"`
	GitHubURL    string   `json:"githubUrl,omitempty" yaml:"githubUrl,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	Featured     bool     `json:"featured" yaml:"featured"`
	StartDate    string   `json:"startDate" yaml:"startDate"`
	EndDate      string   `json:"endDate,omitempty" yaml:"endDate,omitempty"`
}

// Skill categories.
const (
	SkillFrontend = "frontend"
	SkillBackend  = "backend"
	SkillDatabase = "database"
	SkillTools    = "tools"
	SkillOther    = "other"
)

// Skill is a rated skill. Proficiency is 1..5.
type Skill struct {
	ID                string  `json:"id" yaml:"id"`
	Name              string  `json:"name" yaml:"name"`
	Category          string  `json:"category" yaml:"category"`
	Proficiency       int     `json:"proficiency" yaml:"proficiency"`
	YearsOfExperience float64 `json:"yearsOfExperience" yaml:"yearsOfExperience"`
}

// ResumeData is the full resume document.
type ResumeData struct {
	PersonalInfo PersonalInfo `json:"personalInfo" yaml:"personalInfo"`
	Experience   []Experience `json:"experience" yaml:"experience"`
	Education    []Education  `json:"education" yaml:"education"`
	Projects     []Project    `json:"projects" yaml:"projects"`
	Skills       []Skill      `json:"skills" yaml:"skills"`
	LastUpdated  string       `json:"lastUpdated" yaml:"lastUpdated"`
}

// ResumeStats summarises a resume.
type ResumeStats struct {
	TotalExperience float64  `json:"totalExperience"`
	TotalProjects   int      `json:"totalProjects"`
	TotalSkills     int      `json:"totalSkills"`
	TopSkills       []string `json:"topSkills"`
}
