package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/spf13/afero"
)

const changelogFileMode = 0o644

const defaultSectionTemplate = `## {{ .Version }} ({{ .Date }})
{{ range .Groups }}
### {{ .Title }}

{{ range .Entries }}* {{ if .Scope }}**{{ .Scope }}:** {{ end }}{{ .Text }}
{{ end }}{{ end }}`

// ChangelogEntry is one bullet of a changelog section.
type ChangelogEntry struct {
	Scope string
	Text  string
}

// ChangelogGroup is a titled list of entries.
type ChangelogGroup struct {
	Title   string
	Entries []ChangelogEntry
}

// ChangelogSection is the data handed to a renderer for one version.
type ChangelogSection struct {
	Version string
	Date    string
	Groups  []ChangelogGroup
}

// ChangelogRenderer formats a section.
type ChangelogRenderer interface {
	Render(section ChangelogSection) (string, error)
}

type templateRenderer struct {
	tmpl *template.Template
}

// NewTemplateRenderer renders sections with the built-in conventional
// changelog layout.
func NewTemplateRenderer() ChangelogRenderer {
	return &templateRenderer{tmpl: template.Must(template.New("section").Parse(defaultSectionTemplate))}
}

func (r *templateRenderer) Render(section ChangelogSection) (string, error) {
	var sb strings.Builder
	if err := r.tmpl.Execute(&sb, section); err != nil {
		return "", fmt.Errorf("failed to render changelog section %s: %w", section.Version, err)
	}
	return sb.String(), nil
}

// ChangelogRequest describes one changelog update.
type ChangelogRequest struct {
	Project domain.ProjectRef
	Version *domain.Version
	Commits []string
	Header  string
	DryRun  bool
}

// ChangelogMutation is the outcome of a changelog update.
type ChangelogMutation struct {
	FilePath   string
	NewContent string
	// Diff holds the lines added by the update, header excluded.
	Diff string
}

// ChangelogEngine renders changelog sections and prepends them to
// CHANGELOG.md files beneath a fixed header.
type ChangelogEngine struct {
	Fs       afero.Fs
	Analyzer *CommitAnalyzer
	Renderer ChangelogRenderer
	Now      func() time.Time
}

// NewChangelogEngine creates a ChangelogEngine with the default renderer.
func NewChangelogEngine(fsys afero.Fs, analyzer *CommitAnalyzer) *ChangelogEngine {
	return &ChangelogEngine{
		Fs:       fsys,
		Analyzer: analyzer,
		Renderer: NewTemplateRenderer(),
		Now:      time.Now,
	}
}

// RenderSection renders the section of version from raw commit messages.
func (e *ChangelogEngine) RenderSection(version *domain.Version, commits []string) (string, error) {
	section := ChangelogSection{
		Version: version.Raw(),
		Date:    e.Now().Format(time.DateOnly),
		Groups:  e.group(commits),
	}
	return e.Renderer.Render(section)
}

// UpdateChangelog prepends the section of the requested version to the
// project's changelog. Nothing is written on dry-run.
func (e *ChangelogEngine) UpdateChangelog(ctx context.Context, req ChangelogRequest) (*ChangelogMutation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := req.Project.ChangelogPath()
	section, err := e.RenderSection(req.Version, req.Commits)
	if err != nil {
		return nil, err
	}
	before, err := e.read(path)
	if err != nil {
		return nil, err
	}
	after := prependSection(before, req.Header, section)
	mutation := &ChangelogMutation{
		FilePath:   path,
		NewContent: after,
		Diff:       ChangelogDiff(before, after, req.Header),
	}
	if req.DryRun {
		return mutation, nil
	}
	if err := afero.WriteFile(e.Fs, path, []byte(after), changelogFileMode); err != nil {
		return nil, fmt.Errorf("failed to write changelog %s: %w", path, err)
	}
	return mutation, nil
}

// CalculateChangelogChanges snapshots the changelog, runs action, and
// returns the lines the action added.
func (e *ChangelogEngine) CalculateChangelogChanges(path, header string, action func() error) (string, error) {
	before, err := e.read(path)
	if err != nil {
		return "", err
	}
	if err := action(); err != nil {
		return "", err
	}
	after, err := e.read(path)
	if err != nil {
		return "", err
	}
	return ChangelogDiff(before, after, header), nil
}

func (e *ChangelogEngine) read(path string) (string, error) {
	data, err := afero.ReadFile(e.Fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read changelog %s: %w", path, err)
	}
	return string(data), nil
}

func (e *ChangelogEngine) group(commits []string) []ChangelogGroup {
	var features, fixes, perf, reverts, breaking []ChangelogEntry
	for _, info := range e.Analyzer.ParseAll(commits) {
		if !info.Conventional {
			continue
		}
		entry := ChangelogEntry{Scope: info.Scope, Text: info.Description}
		switch info.Type {
		case "feat":
			features = append(features, entry)
		case "fix":
			fixes = append(fixes, entry)
		case "perf":
			perf = append(perf, entry)
		case "revert":
			reverts = append(reverts, entry)
		}
		if info.Breaking {
			note := info.BreakingNote
			if note == "" {
				note = info.Description
			}
			breaking = append(breaking, ChangelogEntry{Scope: info.Scope, Text: note})
		}
	}
	var groups []ChangelogGroup
	for _, g := range []ChangelogGroup{
		{Title: "⚠ BREAKING CHANGES", Entries: breaking},
		{Title: "Features", Entries: features},
		{Title: "Bug Fixes", Entries: fixes},
		{Title: "Performance Improvements", Entries: perf},
		{Title: "Reverts", Entries: reverts},
	} {
		if len(g.Entries) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// releaseHeadingPattern matches the first line of a release section, both
// "## 1.2.0 (date)" / "# [1.2.0](url)" headings and conventional-changelog
// anchors.
var releaseHeadingPattern = regexp.MustCompile(`(?m)^(#+ \[?v?\d+\.\d+\.\d+|<a name=)`)

// releaseSections returns content from its first release heading on.
// Content without one is all preamble.
func releaseSections(content string) (string, bool) {
	loc := releaseHeadingPattern.FindStringIndex(content)
	if loc == nil {
		return "", false
	}
	return content[loc[0]:], true
}

// prependSection replaces whatever precedes the first release heading with
// header and inserts section below it, keeping every existing release
// section after it.
func prependSection(existing, header, section string) string {
	head := strings.TrimRight(header, "\n")
	rest, _ := releaseSections(existing)
	rest = strings.TrimLeft(rest, "\n")
	var sb strings.Builder
	if head != "" {
		sb.WriteString(head)
		sb.WriteString("\n\n")
	}
	sb.WriteString(strings.TrimRight(section, "\n"))
	sb.WriteString("\n")
	if rest != "" {
		sb.WriteString("\n")
		sb.WriteString(rest)
	}
	return sb.String()
}

// ChangelogDiff walks after line by line, advancing a cursor through before
// while lines match verbatim, and returns the after-lines that did not
// match. Everything above the first release heading, or the header when
// there is none, is excluded from both sides.
func ChangelogDiff(before, after, header string) string {
	if before == after {
		return ""
	}
	body := func(content string) string {
		if sections, ok := releaseSections(content); ok {
			return sections
		}
		return stripHeader(content, header)
	}
	beforeLines := splitLines(body(before))
	afterLines := splitLines(body(after))
	cursor := 0
	var added []string
	for _, line := range afterLines {
		if cursor < len(beforeLines) && line == beforeLines[cursor] {
			cursor++
			continue
		}
		added = append(added, line)
	}
	return strings.TrimSpace(strings.Join(added, "\n"))
}

func stripHeader(content, header string) string {
	head := strings.TrimRight(header, "\n")
	if head == "" {
		return content
	}
	if rest, ok := strings.CutPrefix(content, head); ok {
		return rest
	}
	return content
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
