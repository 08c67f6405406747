package service

import (
	"strings"

	"github.com/compozy/monorelease/internal/domain"
	conventionalcommits "github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"
)

// CommitInfo is the conventional-commit classification of one message.
type CommitInfo struct {
	Raw          string
	Conventional bool
	Type         string
	Scope        string
	Description  string
	Breaking     bool
	// BreakingNote is the text of a BREAKING CHANGE footer, if any.
	BreakingNote string
}

// Subject is the first line of the raw message.
func (c CommitInfo) Subject() string {
	subject, _, _ := strings.Cut(c.Raw, "\n")
	return strings.TrimSpace(subject)
}

// CommitAnalyzer classifies commit messages.
type CommitAnalyzer struct{}

// NewCommitAnalyzer creates a CommitAnalyzer.
func NewCommitAnalyzer() *CommitAnalyzer {
	return &CommitAnalyzer{}
}

// Parse classifies a message. Messages that do not follow the convention
// come back with Conventional unset.
func (a *CommitAnalyzer) Parse(message string) CommitInfo {
	info := CommitInfo{Raw: message}
	// The machine keeps parser state, so one is built per message.
	machine := parser.NewMachine(
		parser.WithTypes(conventionalcommits.TypesFreeForm),
		parser.WithBestEffort(),
	)
	msg, _ := machine.Parse([]byte(strings.TrimSpace(message)))
	cc, ok := msg.(*conventionalcommits.ConventionalCommit)
	if !ok || cc == nil || !cc.Ok() {
		return info
	}
	info.Conventional = true
	info.Type = strings.ToLower(cc.Type)
	info.Description = cc.Description
	if cc.Scope != nil {
		info.Scope = *cc.Scope
	}
	info.Breaking = cc.IsBreakingChange()
	for key, notes := range cc.Footers {
		normalized := strings.ReplaceAll(strings.ToLower(key), " ", "-")
		if normalized == "breaking-change" && len(notes) > 0 {
			info.BreakingNote = notes[0]
			info.Breaking = true
		}
	}
	return info
}

// ParseAll classifies every message, preserving order.
func (a *CommitAnalyzer) ParseAll(messages []string) []CommitInfo {
	out := make([]CommitInfo, len(messages))
	for i, m := range messages {
		out[i] = a.Parse(m)
	}
	return out
}

// FilterTypes drops messages whose conventional type is in skip.
// Non-conventional messages are always kept.
func (a *CommitAnalyzer) FilterTypes(messages []string, skip []string) []string {
	if len(skip) == 0 {
		return messages
	}
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[strings.ToLower(strings.TrimSpace(s))] = true
	}
	kept := make([]string, 0, len(messages))
	for _, m := range messages {
		if info := a.Parse(m); info.Conventional && skipped[info.Type] {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// RecommendBump derives the release type from commits: any breaking change
// is major, any feature minor, anything else patch. An empty list yields "".
func (a *CommitAnalyzer) RecommendBump(messages []string) domain.ReleaseType {
	if len(messages) == 0 {
		return ""
	}
	bump := domain.ReleaseTypePatch
	for _, info := range a.ParseAll(messages) {
		switch {
		case info.Breaking:
			return domain.ReleaseTypeMajor
		case info.Type == "feat":
			bump = domain.HigherImpact(bump, domain.ReleaseTypeMinor)
		}
	}
	return bump
}
