package resume

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/apiclient"
	"folio/internal/cache"
	"folio/internal/core"
)

var fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type countingSource struct {
	calls atomic.Int32
	err   error
	data  *core.ResumeData
}

func (s *countingSource) Load(context.Context) (*core.ResumeData, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(src Source) (*Service, *testClock) {
	clock := &testClock{now: fixedNow}
	svc := NewService(src, cache.NewMemoryWithClock(clock.Now), Options{})
	svc.now = clock.Now
	return svc, clock
}

func customData() *core.ResumeData {
	d := DefaultData(fixedNow)
	d.PersonalInfo.Name = "Jane Roe"
	return d
}

func TestService_DataCaching(t *testing.T) {
	src := &countingSource{data: customData()}
	svc, clock := newTestService(src)
	ctx := context.Background()

	d, err := svc.Data(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", d.PersonalInfo.Name)

	_, err = svc.Data(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())

	_, err = svc.Data(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load(), "force refresh bypasses the cache")

	clock.Advance(DefaultCacheTTL + time.Second)
	_, err = svc.Data(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int32(3), src.calls.Load(), "expired entry is reloaded")

	require.NoError(t, svc.ClearCache(ctx))
	_, err = svc.Data(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int32(4), src.calls.Load())
}

func TestService_FallbackIsNotCached(t *testing.T) {
	src := &countingSource{err: errors.New("unreachable")}
	svc, _ := newTestService(src)
	ctx := context.Background()

	d, err := svc.Data(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", d.PersonalInfo.Name)
	assert.Equal(t, "2024-06-01T00:00:00.000Z", d.LastUpdated)

	src.err = nil
	src.data = customData()
	d, err = svc.Data(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", d.PersonalInfo.Name)
}

func TestService_StatsOverFallbackAreNotCached(t *testing.T) {
	src := &countingSource{err: errors.New("unreachable")}
	svc, _ := newTestService(src)
	ctx := context.Background()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalProjects)

	recovered := customData()
	recovered.Projects = append(recovered.Projects, core.Project{ID: "3", Name: "Third", StartDate: "2024-01"})
	src.err = nil
	src.data = recovered

	d, err := svc.Data(ctx, false)
	require.NoError(t, err)
	assert.Len(t, d.Projects, 3)

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalProjects)
}

func TestService_DataCancelled(t *testing.T) {
	src := &countingSource{err: context.Canceled}
	svc, _ := newTestService(src)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Data(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_Stats(t *testing.T) {
	src := &countingSource{data: DefaultData(fixedNow)}
	svc, clock := newTestService(src)
	ctx := context.Background()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	// 882 days in the current role plus 578 days at the previous one
	assert.Equal(t, 4.0, stats.TotalExperience)
	assert.Equal(t, 2, stats.TotalProjects)
	assert.Equal(t, 5, stats.TotalSkills)
	assert.Equal(t, []string{"React", "TypeScript", "Node.js", "PostgreSQL", "AWS"}, stats.TopSkills)

	// stats outlive the document cache
	clock.Advance(DefaultCacheTTL + time.Second)
	_, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())

	clock.Advance(DefaultStatsCacheTTL)
	_, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestComputeStats_TopFive(t *testing.T) {
	d := &core.ResumeData{Skills: []core.Skill{
		{Name: "a", Proficiency: 1, YearsOfExperience: 1},
		{Name: "b", Proficiency: 5, YearsOfExperience: 10},
		{Name: "c", Proficiency: 2, YearsOfExperience: 2},
		{Name: "d", Proficiency: 3, YearsOfExperience: 3},
		{Name: "e", Proficiency: 4, YearsOfExperience: 1},
		{Name: "f", Proficiency: 4, YearsOfExperience: 4},
	}}
	stats := ComputeStats(d, fixedNow)
	assert.Equal(t, []string{"b", "f", "d", "c", "e"}, stats.TopSkills)
	assert.Equal(t, 0.0, stats.TotalExperience)
}

func TestService_Queries(t *testing.T) {
	d := DefaultData(fixedNow)
	d.Experience = append(d.Experience, core.Experience{ID: "exp-0", StartDate: "2018-01-01", EndDate: "2019-01-01"})
	d.Projects = append(d.Projects,
		core.Project{ID: "proj-3", Name: "CLI Tool", Description: "Go command line", Technologies: []string{"Go"}, StartDate: "2024-01-01"},
		core.Project{ID: "proj-4", Name: "Blog", Description: "Static site", Technologies: []string{"Hugo"}, StartDate: "2021-01-01"},
	)
	svc, _ := newTestService(&countingSource{data: d})
	ctx := context.Background()

	exp, err := svc.Experience(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"exp-1", "exp-2", "exp-0"}, ids(exp, func(e core.Experience) string { return e.ID }))

	edu, err := svc.Education(ctx)
	require.NoError(t, err)
	assert.Len(t, edu, 1)

	projects, err := svc.Projects(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"proj-1", "proj-2", "proj-3", "proj-4"}, ids(projects, func(p core.Project) string { return p.ID }))

	featured, err := svc.Projects(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"proj-1", "proj-2"}, ids(featured, func(p core.Project) string { return p.ID }))

	skills, err := svc.Skills(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"React", "TypeScript", "Node.js", "PostgreSQL", "AWS"}, ids(skills, func(s core.Skill) string { return s.Name }))

	frontend, err := svc.Skills(ctx, core.SkillFrontend)
	require.NoError(t, err)
	assert.Len(t, frontend, 2)

	grouped, err := svc.SkillsByCategory(ctx)
	require.NoError(t, err)
	assert.Len(t, grouped, 4)
	assert.Equal(t, "React", grouped[core.SkillFrontend][0].Name)

	found, err := svc.SearchProjects(ctx, "COMMAND")
	require.NoError(t, err)
	assert.Equal(t, []string{"proj-3"}, ids(found, func(p core.Project) string { return p.ID }))

	found, err = svc.SearchProjects(ctx, "typescript")
	require.NoError(t, err)
	assert.Equal(t, []string{"proj-2"}, ids(found, func(p core.Project) string { return p.ID }))

	byTech, err := svc.ProjectsByTechnology(ctx, "node")
	require.NoError(t, err)
	assert.Equal(t, []string{"proj-1"}, ids(byTech, func(p core.Project) string { return p.ID }))

	byTech, err = svc.ProjectsByTechnology(ctx, "rust")
	require.NoError(t, err)
	assert.Empty(t, byTech)
}

func TestService_ExportJSON(t *testing.T) {
	svc, _ := newTestService(&countingSource{data: DefaultData(fixedNow)})
	out, err := svc.ExportJSON(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(out), "\n  \"personalInfo\": {\n    \"name\": \"John Doe\"")

	var back core.ResumeData
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, *DefaultData(fixedNow), back)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "resume.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
personalInfo:
  name: Jane Roe
  title: Platform Engineer
skills:
  - id: s1
    name: Go
    category: backend
    proficiency: 5
    yearsOfExperience: 6
education:
  - id: e1
    institution: MIT
    gpa: 3.9
`), 0o600))

	d, err := FileSource{Path: yamlPath}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", d.PersonalInfo.Name)
	require.Len(t, d.Skills, 1)
	assert.Equal(t, 6.0, d.Skills[0].YearsOfExperience)
	require.NotNil(t, d.Education[0].GPA)
	assert.Equal(t, 3.9, *d.Education[0].GPA)

	jsonPath := filepath.Join(dir, "resume.json")
	raw, err := json.Marshal(DefaultData(fixedNow))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(jsonPath, raw, 0o600))

	d, err = FileSource{Path: jsonPath}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, *DefaultData(fixedNow), *d)

	_, err = FileSource{Path: filepath.Join(dir, "missing.yaml")}.Load(context.Background())
	assert.Error(t, err)

	emptyPath := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(emptyPath, []byte("skills: []\n"), 0o600))
	_, err = FileSource{Path: emptyPath}.Load(context.Background())
	assert.Error(t, err)
}

func TestAPISource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/resume", r.URL.Path)
		body, _ := json.Marshal(core.NewEnvelope(customData(), "Resume data retrieved successfully"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	src := APISource{Client: apiclient.New(apiclient.Config{BaseURL: server.URL})}
	d, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", d.PersonalInfo.Name)
}

func TestStaticSource(t *testing.T) {
	d, err := StaticSource{Now: func() time.Time { return fixedNow }}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "John Doe", d.PersonalInfo.Name)
	assert.Equal(t, "2024-06-01T00:00:00.000Z", d.LastUpdated)
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}
