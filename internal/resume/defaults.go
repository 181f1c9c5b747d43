package resume

import (
	"time"

	"folio/internal/core"
)

// DefaultData is the resume served when no source is configured or the
// configured source fails.
func DefaultData(now time.Time) *core.ResumeData {
	gpa := 3.7
	return &core.ResumeData{
		PersonalInfo: core.PersonalInfo{
			Name:     "John Doe",
			Title:    "Full Stack Developer",
			Email:    "john.doe@example.com",
			Phone:    "+1 (555) 123-4567",
			Location: "San Francisco, CA",
			Website:  "https://johndoe.dev",
			LinkedIn: "https://linkedin.com/in/johndoe",
			GitHub:   "https://github.com/johndoe",
			Summary: "Passionate full-stack developer with 5+ years of experience building scalable web " +
				"applications using modern technologies like React, Node.js, and TypeScript.",
			Avatar: "/images/avatar.jpg",
		},
		Experience: []core.Experience{
			{
				ID:           "exp-1",
				Company:      "Tech Solutions Inc.",
				Position:     "Senior Frontend Developer",
				StartDate:    "2022-01-01",
				Current:      true,
				Description:  "Lead frontend development for multiple client projects using React, TypeScript, and Next.js.",
				Technologies: []string{"React", "TypeScript", "Next.js", "Tailwind CSS", "Jest"},
				Achievements: []string{
					"Improved application performance by 40% through code optimization",
					"Mentored 3 junior developers",
					"Led migration from JavaScript to TypeScript",
				},
			},
			{
				ID:           "exp-2",
				Company:      "StartupXYZ",
				Position:     "Full Stack Developer",
				StartDate:    "2020-06-01",
				EndDate:      "2021-12-31",
				Description:  "Developed and maintained full-stack applications using React, Node.js, and PostgreSQL.",
				Technologies: []string{"React", "Node.js", "PostgreSQL", "Express", "AWS"},
				Achievements: []string{
					"Built MVP that acquired 10K+ users",
					"Implemented CI/CD pipeline reducing deployment time by 60%",
					"Designed and implemented REST API serving 1M+ requests daily",
				},
			},
		},
		Education: []core.Education{
			{
				ID:          "edu-1",
				Institution: "University of California, Berkeley",
				Degree:      "Bachelor of Science",
				Field:       "Computer Science",
				StartDate:   "2016-09-01",
				EndDate:     "2020-05-15",
				GPA:         &gpa,
				Honors:      []string{"Magna Cum Laude", "Dean's List"},
			},
		},
		Projects: []core.Project{
			{
				ID:           "proj-1",
				Name:         "E-commerce Platform",
				Description:  "Full-stack e-commerce platform with React frontend and Node.js backend",
				Technologies: []string{"React", "Node.js", "PostgreSQL", "Stripe", "AWS"},
				LiveURL:      "https://ecommerce.example.com",
				GitHubURL:    "https://github.com/johndoe/ecommerce-platform",
				ImageURL:     "/images/projects/ecommerce.jpg",
				Featured:     true,
				StartDate:    "2023-03-01",
				EndDate:      "2023-08-15",
			},
			{
				ID:           "proj-2",
				Name:         "Task Management App",
				Description:  "Real-time task management application with team collaboration features",
				Technologies: []string{"Next.js", "TypeScript", "Prisma", "Socket.io"},
				LiveURL:      "https://taskapp.example.com",
				GitHubURL:    "https://github.com/johndoe/task-management",
				ImageURL:     "/images/projects/taskapp.jpg",
				Featured:     true,
				StartDate:    "2022-09-01",
				EndDate:      "2023-01-30",
			},
		},
		Skills: []core.Skill{
			{ID: "skill-1", Name: "React", Category: core.SkillFrontend, Proficiency: 5, YearsOfExperience: 4},
			{ID: "skill-2", Name: "TypeScript", Category: core.SkillFrontend, Proficiency: 5, YearsOfExperience: 3},
			{ID: "skill-3", Name: "Node.js", Category: core.SkillBackend, Proficiency: 4, YearsOfExperience: 3},
			{ID: "skill-4", Name: "PostgreSQL", Category: core.SkillDatabase, Proficiency: 4, YearsOfExperience: 3},
			{ID: "skill-5", Name: "AWS", Category: core.SkillTools, Proficiency: 3, YearsOfExperience: 2},
		},
		LastUpdated: now.UTC().Format(core.TimestampLayout),
	}
}
