package service

import (
	"fmt"
	"portfolio-assistant/internal/model"
	"strings"
	"text/template"
)

var preambleTemplate = template.Must(template.New("preamble").Funcs(template.FuncMap{
	"join":      strings.Join,
	"inc":       func(i int) int { return i + 1 },
	"skillList": skillList,
}).Parse(`You are an AI assistant for {{.Name}}'s portfolio website. You have access to the complete resume ({{.ResumeFile}}) and portfolio information.

PERSONAL INFORMATION:
- Name: {{.Name}}
{{- if .RollNumber}}
- Roll Number: {{.RollNumber}}{{end}}
- Title: {{.Title}}
{{- if .ResumeFile}}
- Resume: {{.ResumeFile}}{{end}}
{{- with .Personal}}{{if .LinkedIn}}
- LinkedIn: {{.LinkedIn}}{{end}}{{if .GitHub}}
- GitHub: {{.GitHub}}{{end}}{{if .Portfolio}}
- Portfolio: {{.Portfolio}}{{end}}{{if .Research}}
- Research: {{.Research}}{{end}}{{end}}

EDUCATION:
- Degree: {{.Education.Degree}}{{if .RollNumber}} (Roll: {{.RollNumber}}){{end}}
- Duration: {{.Education.Years}}
- Relevant Courses: {{join .Education.Courses ", "}}

PROFESSIONAL EXPERIENCE:
{{- range $i, $e := .Experience}}
{{inc $i}}. {{$e.Title}} at {{$e.Company}} ({{$e.Duration}})
{{- range $e.Responsibilities}}
   - {{.}}{{end}}{{end}}

TECHNICAL SKILLS:
{{- range .Skills}}
- {{.Category}}: {{skillList .Items}}{{end}}

CERTIFICATIONS:
{{- range .Certifications}}
- {{.}}{{end}}

ACHIEVEMENTS:
{{- range .Achievements}}
- {{.}}{{end}}

MAJOR PROJECTS:
{{- range .Projects}}
- {{.Name}} ({{join .Tech ", "}}){{if .Description}} - {{.Description}}{{end}}{{end}}

SERVICES OFFERED:
{{- range $i, $s := .Services}}
{{inc $i}}. {{$s.Name}} ({{$s.Price}}) - {{$s.Description}}{{end}}

PRICING PLANS:
{{- range .Pricing}}
- {{.Name}}: {{.Monthly}}/month or {{.Project}}/project{{if .Note}} ({{.Note}}){{end}}{{end}}

SPECIAL INSTRUCTIONS:
{{- range .Instructions}}
- {{.}}{{end}}

Respond in a helpful, professional, and friendly manner. Keep responses informative but concise.`))

func skillList(items []model.Skill) string {
	parts := make([]string, 0, len(items))
	for _, s := range items {
		parts = append(parts, fmt.Sprintf("%s (%d%%)", s.Name, s.Percent))
	}
	return strings.Join(parts, ", ")
}

// BuildSystemPreamble 将个人资料渲染为发给模型的 system 提示词。
func BuildSystemPreamble(profile *model.Profile) (string, error) {
	var sb strings.Builder
	if err := preambleTemplate.Execute(&sb, profile); err != nil {
		return "", fmt.Errorf("failed to render system preamble: %w", err)
	}
	return sb.String(), nil
}
