// Package resume serves resume data: loading it from a source, caching it,
// and answering sorted and filtered queries over it.
package resume

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"folio/internal/apiclient"
	"folio/internal/core"
)

// Source loads the resume document.
type Source interface {
	Load(ctx context.Context) (*core.ResumeData, error)
}

// FileSource reads a YAML or JSON document from disk on every Load.
type FileSource struct {
	Path string
}

// Load implements Source.
func (s FileSource) Load(_ context.Context) (*core.ResumeData, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resume file: %w", err)
	}

	var data core.ResumeData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse resume file %s: %w", s.Path, err)
	}
	if data.PersonalInfo.Name == "" {
		return nil, fmt.Errorf("resume file %s has no personalInfo.name", s.Path)
	}
	return &data, nil
}

// APISource fetches the document from another folio API.
type APISource struct {
	Client  *apiclient.Client
	Timeout time.Duration
}

// Load implements Source.
func (s APISource) Load(ctx context.Context) (*core.ResumeData, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	data, err := apiclient.GetJSON[core.ResumeData](ctx, s.Client, "/api/resume", apiclient.WithTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch resume: %w", err)
	}
	return &data, nil
}

// StaticSource serves the built-in document.
type StaticSource struct {
	Now func() time.Time
}

// Load implements Source.
func (s StaticSource) Load(_ context.Context) (*core.ResumeData, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return DefaultData(now()), nil
}
