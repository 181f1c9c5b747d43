package resume

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"folio/internal/core"
)

const daysPerYear = 365.25

// parseDate accepts YYYY-MM-DD or RFC 3339. Unparseable dates sort as the zero time.
func parseDate(s string) time.Time {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// byCurrentThenNewest orders current entries first, then by start date, newest first.
func byCurrentThenNewest(aCurrent bool, aStart string, bCurrent bool, bStart string) int {
	if aCurrent != bCurrent {
		if aCurrent {
			return -1
		}
		return 1
	}
	return parseDate(bStart).Compare(parseDate(aStart))
}

// Experience returns positions, current first, then newest first.
func (s *Service) Experience(ctx context.Context) ([]core.Experience, error) {
	data, err := s.Data(ctx, false)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(data.Experience)
	slices.SortStableFunc(out, func(a, b core.Experience) int {
		return byCurrentThenNewest(a.Current, a.StartDate, b.Current, b.StartDate)
	})
	return out, nil
}

// Education returns programs, current first, then newest first.
func (s *Service) Education(ctx context.Context) ([]core.Education, error) {
	data, err := s.Data(ctx, false)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(data.Education)
	slices.SortStableFunc(out, func(a, b core.Education) int {
		return byCurrentThenNewest(a.Current, a.StartDate, b.Current, b.StartDate)
	})
	return out, nil
}

// Projects returns projects, featured first, then newest first. featuredOnly drops the rest.
func (s *Service) Projects(ctx context.Context, featuredOnly bool) ([]core.Project, error) {
	data, err := s.Data(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]core.Project, 0, len(data.Projects))
	for _, p := range data.Projects {
		if featuredOnly && !p.Featured {
			continue
		}
		out = append(out, p)
	}
	slices.SortStableFunc(out, func(a, b core.Project) int {
		return byCurrentThenNewest(a.Featured, a.StartDate, b.Featured, b.StartDate)
	})
	return out, nil
}

// Skills returns skills by proficiency, then years of experience, both descending.
// A non-empty category filters the result.
func (s *Service) Skills(ctx context.Context, category string) ([]core.Skill, error) {
	data, err := s.Data(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]core.Skill, 0, len(data.Skills))
	for _, sk := range data.Skills {
		if category != "" && sk.Category != category {
			continue
		}
		out = append(out, sk)
	}
	slices.SortStableFunc(out, func(a, b core.Skill) int {
		if c := cmp.Compare(b.Proficiency, a.Proficiency); c != 0 {
			return c
		}
		return cmp.Compare(b.YearsOfExperience, a.YearsOfExperience)
	})
	return out, nil
}

// SkillsByCategory groups the sorted skills by category.
func (s *Service) SkillsByCategory(ctx context.Context) (map[string][]core.Skill, error) {
	skills, err := s.Skills(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string][]core.Skill)
	for _, sk := range skills {
		out[sk.Category] = append(out[sk.Category], sk)
	}
	return out, nil
}

// SearchProjects matches query case-insensitively against name, description and technologies.
func (s *Service) SearchProjects(ctx context.Context, query string) ([]core.Project, error) {
	projects, err := s.Projects(ctx, false)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	return slices.DeleteFunc(projects, func(p core.Project) bool {
		return !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) &&
			!usesTechnology(p, q)
	}), nil
}

// ProjectsByTechnology returns projects with a technology containing tech, case-insensitively.
func (s *Service) ProjectsByTechnology(ctx context.Context, tech string) ([]core.Project, error) {
	projects, err := s.Projects(ctx, false)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(tech)
	return slices.DeleteFunc(projects, func(p core.Project) bool {
		return !usesTechnology(p, q)
	}), nil
}

func usesTechnology(p core.Project, lowerQuery string) bool {
	return slices.ContainsFunc(p.Technologies, func(t string) bool {
		return strings.Contains(strings.ToLower(t), lowerQuery)
	})
}

// ComputeStats summarises data as of now.
func ComputeStats(data *core.ResumeData, now time.Time) *core.ResumeStats {
	total := 0.0
	for _, exp := range data.Experience {
		start := parseDate(exp.StartDate)
		end := now
		if !exp.Current && exp.EndDate != "" {
			end = parseDate(exp.EndDate)
		}
		total += end.Sub(start).Hours() / 24 / daysPerYear
	}

	ranked := slices.Clone(data.Skills)
	slices.SortStableFunc(ranked, func(a, b core.Skill) int {
		return cmp.Compare(float64(b.Proficiency)*b.YearsOfExperience, float64(a.Proficiency)*a.YearsOfExperience)
	})
	top := make([]string, 0, 5)
	for _, sk := range ranked {
		if len(top) == 5 {
			break
		}
		top = append(top, sk.Name)
	}

	return &core.ResumeStats{
		TotalExperience: math.Round(total*10) / 10,
		TotalProjects:   len(data.Projects),
		TotalSkills:     len(data.Skills),
		TopSkills:       top,
	}
}
