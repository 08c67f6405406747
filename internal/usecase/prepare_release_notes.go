package usecase

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"text/template"

	"github.com/compozy/monorelease/internal/domain"
)

// PrepareReleaseNotesUseCase turns the changelog diff of a release into the
// body of a remote release.
type PrepareReleaseNotesUseCase struct{}

// sanitizeNotes escapes HTML while keeping the markdown a changelog uses.
func (uc *PrepareReleaseNotesUseCase) sanitizeNotes(notes string) string {
	if notes == "" {
		return ""
	}
	sanitized := html.EscapeString(notes)
	// Angle brackets stay escaped.
	replacements := map[string]string{
		"&#34;": "\"",
		"&#39;": "'",
		"&amp;": "&",
	}
	lines := strings.Split(sanitized, "\n")
	for i, line := range lines {
		if after, ok := strings.CutPrefix(line, "&gt; "); ok {
			lines[i] = "> " + after
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") || strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
			for escaped, original := range replacements {
				lines[i] = strings.ReplaceAll(lines[i], escaped, original)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// Execute renders the release notes.
func (uc *PrepareReleaseNotesUseCase) Execute(_ context.Context, release *domain.Release) (string, error) {
	if release == nil {
		return "", fmt.Errorf("release cannot be nil")
	}
	if release.Version == nil {
		return "", fmt.Errorf("release version cannot be nil")
	}
	data := struct {
		Notes   string
		Compare string
	}{
		Notes: uc.sanitizeNotes(strings.TrimSpace(release.Notes)),
	}
	if prev := release.PreviousTagName(); prev != "" {
		data.Compare = html.EscapeString(prev + "..." + release.TagName())
	}
	tmpl, err := template.New("release-notes").Option("missingkey=error").Parse(releaseNotesTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse release notes template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute release notes template: %w", err)
	}
	output := strings.TrimSpace(buf.String())
	lower := strings.ToLower(output)
	if strings.Contains(lower, "<script") || strings.Contains(lower, "javascript:") ||
		strings.Contains(output, "{{") || strings.Contains(output, "}}") {
		return "", fmt.Errorf("potential injection detected in release notes")
	}
	return output, nil
}

const releaseNotesTemplate = `{{ .Notes }}
{{ if .Compare }}
**Full Changelog**: {{ .Compare }}
{{ end }}`
