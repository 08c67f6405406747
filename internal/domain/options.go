package domain

import (
	"fmt"
	"strings"
)

// Defaults applied when neither config nor flags set a value.
const (
	DefaultRemote              = "origin"
	DefaultBaseBranch          = "main"
	DefaultTagPrefix           = "${projectName}-"
	DefaultSyncedTagPrefix     = "v"
	DefaultCommitMessageFormat = "chore(${projectName}): release version ${version}"
	DefaultChangelogHeader     = "# Changelog\n\nThis file was generated by monorelease.\n"
)

// ReleaseOptions is the resolved flag set of one release invocation. It is
// read-only for the duration of a release.
type ReleaseOptions struct {
	DryRun               bool
	NoVerify             bool
	Push                 bool
	Remote               string
	BaseBranch           string
	TagPrefix            string
	SyncVersions         bool
	SkipProjectChangelog bool
	SkipRootChangelog    bool
	ReleaseType          ReleaseType
	Preid                string
	ChangelogHeader      string
	CommitMessageFormat  string
	PostTargets          []Descriptor
	Plugins              []Descriptor
	TrackDeps            bool
	AllowEmptyRelease    bool
	SkipCommitTypes      []string
}

// WithDefaults fills unset string options. Blank remote and branch count as
// unset, so a release that pushes always has both.
func (o ReleaseOptions) WithDefaults() ReleaseOptions {
	if strings.TrimSpace(o.Remote) == "" {
		o.Remote = DefaultRemote
	}
	if strings.TrimSpace(o.BaseBranch) == "" {
		o.BaseBranch = DefaultBaseBranch
	}
	if o.TagPrefix == "" {
		o.TagPrefix = DefaultTagPrefix
		if o.SyncVersions {
			o.TagPrefix = DefaultSyncedTagPrefix
		}
	}
	if o.CommitMessageFormat == "" {
		o.CommitMessageFormat = DefaultCommitMessageFormat
	}
	if o.ChangelogHeader == "" {
		o.ChangelogHeader = DefaultChangelogHeader
	}
	return o
}

// TracksDependencies reports whether dependency commits widen the release.
func (o ReleaseOptions) TracksDependencies() bool {
	return o.SyncVersions || o.TrackDeps
}

// Validate checks option combinations that cannot be released.
func (o ReleaseOptions) Validate() error {
	if o.Preid != "" && o.ReleaseType != "" && !o.ReleaseType.IsPrereleaseFamily() {
		return &ConfigError{
			Field:  "preid",
			Reason: fmt.Sprintf("preid %q is only valid with prerelease bumps, got %q", o.Preid, o.ReleaseType),
		}
	}
	return nil
}

// DescriptorKind tags the two accepted descriptor shapes.
type DescriptorKind string

const (
	DescriptorBare       DescriptorKind = "bare"
	DescriptorConfigured DescriptorKind = "configured"
)

// Descriptor references a plugin or post-target either by bare name or by
// name plus options. It is resolved once at load time.
type Descriptor struct {
	Kind    DescriptorKind
	Name    string
	Options Options
}

// Options holds the free-form options of a descriptor.
type Options map[string]any

// lookup finds key, falling back to a case-insensitive match since config
// loaders may lowercase nested keys.
func (o Options) lookup(key string) (any, bool) {
	if v, ok := o[key]; ok {
		return v, true
	}
	for k, v := range o {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// String returns the string option key, or def when unset or empty.
func (o Options) String(key, def string) string {
	if v, ok := o.lookup(key); ok && v != nil {
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return def
}

// Bool returns the boolean option key. Strings "true" and "false" are
// accepted since interpolated values are always strings.
func (o Options) Bool(key string) bool {
	v, _ := o.lookup(key)
	switch v := v.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	}
	return false
}

// Strings returns the list option key. A single string becomes a one
// element list.
func (o Options) Strings(key string) []string {
	v, _ := o.lookup(key)
	switch v := v.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// Has reports whether key is set to a non-empty value.
func (o Options) Has(key string) bool {
	v, ok := o.lookup(key)
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// ParseDescriptor normalizes a raw config value (string or object) into a
// Descriptor. nameKey is the object key holding the reference, e.g. "module"
// for plugins or "executor" for post-targets.
func ParseDescriptor(raw any, nameKey string) (Descriptor, error) {
	switch v := raw.(type) {
	case string:
		name := strings.TrimSpace(v)
		if name == "" {
			return Descriptor{}, fmt.Errorf("descriptor name cannot be empty")
		}
		return Descriptor{Kind: DescriptorBare, Name: name}, nil
	case Descriptor:
		return v, nil
	case map[string]any:
		name, _ := v[nameKey].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			return Descriptor{}, fmt.Errorf("descriptor is missing %q", nameKey)
		}
		opts := map[string]any{}
		if rawOpts, ok := v["options"]; ok && rawOpts != nil {
			m, ok := toStringMap(rawOpts)
			if !ok {
				return Descriptor{}, fmt.Errorf("descriptor %q: options must be an object, got %T", name, rawOpts)
			}
			opts = m
		}
		return Descriptor{Kind: DescriptorConfigured, Name: name, Options: opts}, nil
	case map[any]any:
		m, _ := toStringMap(v)
		return ParseDescriptor(m, nameKey)
	}
	return Descriptor{}, fmt.Errorf("unsupported descriptor type %T", raw)
}

// ParseDescriptors normalizes a list of raw descriptors.
func ParseDescriptors(raw []any, nameKey string) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(raw))
	for i, r := range raw {
		d, err := ParseDescriptor(r, nameKey)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func toStringMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	}
	return nil, false
}
