package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/go-git/go-git/v5"
	"github.com/spf13/viper"
)

const (
	// FileName is the configuration file looked up in the workspace root.
	FileName = ".monorelease"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "MONORELEASE"
	// DefaultWorkspaceName names the aggregate root when none is configured.
	DefaultWorkspaceName = "workspace"
)

type Config struct {
	GithubToken string                  `mapstructure:"github_token"`
	GithubOwner string                  `mapstructure:"github_owner"`
	GithubRepo  string                  `mapstructure:"github_repo"`
	NpmToken    string                  `mapstructure:"npm_token"`
	Workspace   WorkspaceConfig         `mapstructure:"workspace"`
	Release     ReleaseConfig           `mapstructure:"release"`
	Targets     map[string]TargetConfig `mapstructure:"targets"`
	PostTargets []any                   `mapstructure:"postTargets"`
	Plugins     []any                   `mapstructure:"plugins"`
	// Root is the workspace directory the configuration was loaded from.
	Root string `mapstructure:"-"`
}

// WorkspaceConfig lists the releasable projects.
type WorkspaceConfig struct {
	Name     string          `mapstructure:"name"`
	Projects []ProjectConfig `mapstructure:"projects"`
}

// ProjectConfig is one project of the workspace.
type ProjectConfig struct {
	Name      string   `mapstructure:"name"`
	Root      string   `mapstructure:"root"`
	DependsOn []string `mapstructure:"dependsOn"`
}

// ReleaseConfig holds the defaults of every release flag.
type ReleaseConfig struct {
	DryRun               bool     `mapstructure:"dryRun"`
	NoVerify             bool     `mapstructure:"noVerify"`
	Push                 bool     `mapstructure:"push"`
	Remote               string   `mapstructure:"remote"`
	BaseBranch           string   `mapstructure:"baseBranch"`
	TagPrefix            string   `mapstructure:"tagPrefix"`
	SyncVersions         bool     `mapstructure:"syncVersions"`
	SkipProjectChangelog bool     `mapstructure:"skipProjectChangelog"`
	SkipRootChangelog    bool     `mapstructure:"skipRootChangelog"`
	ReleaseAs            string   `mapstructure:"releaseAs"`
	Preid                string   `mapstructure:"preid"`
	ChangelogHeader      string   `mapstructure:"changelogHeader"`
	CommitMessageFormat  string   `mapstructure:"commitMessageFormat"`
	TrackDeps            bool     `mapstructure:"trackDeps"`
	AllowEmptyRelease    bool     `mapstructure:"allowEmptyRelease"`
	SkipCommitTypes      []string `mapstructure:"skipCommitTypes"`
}

// TargetConfig is a named post-target definition.
type TargetConfig struct {
	Executor string         `mapstructure:"executor"`
	Options  map[string]any `mapstructure:"options"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{Name: DefaultWorkspaceName},
		Release: ReleaseConfig{
			Remote:     domain.DefaultRemote,
			BaseBranch: domain.DefaultBaseBranch,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// GitHub token is optional - only validate if provided
	if c.GithubToken != "" {
		if err := ValidateGitHubToken(c.GithubToken); err != nil {
			return fmt.Errorf("invalid github_token: %w", err)
		}
	}
	if c.GithubOwner != "" || c.GithubRepo != "" {
		if err := ValidateGitHubOwnerRepo(c.GithubOwner, c.GithubRepo); err != nil {
			return fmt.Errorf("invalid github configuration: %w", err)
		}
	}
	if strings.TrimSpace(c.Workspace.Name) == "" {
		return fmt.Errorf("workspace.name cannot be empty")
	}
	for _, p := range c.Workspace.Projects {
		if p.Name == "" {
			return fmt.Errorf("workspace.projects: project name cannot be empty")
		}
		if strings.Contains(p.Root, "..") || filepath.IsAbs(p.Root) {
			return fmt.Errorf("workspace.projects: root of %q must stay inside the workspace", p.Name)
		}
	}
	if err := ValidateTagPrefix(c.Release.TagPrefix); err != nil {
		return fmt.Errorf("invalid release.tagPrefix: %w", err)
	}
	if _, err := c.ReleaseOptions(); err != nil {
		return err
	}
	for name, t := range c.Targets {
		if strings.TrimSpace(t.Executor) == "" {
			return fmt.Errorf("targets.%s: executor cannot be empty", name)
		}
	}
	return nil
}

// ValidateForGitHubOperations validates that GitHub token is present for operations that require it
func (c *Config) ValidateForGitHubOperations() error {
	if c.GithubToken == "" {
		return fmt.Errorf("github_token is required for GitHub operations")
	}
	if c.GithubOwner == "" || c.GithubRepo == "" {
		return fmt.Errorf("github_owner and github_repo are required for GitHub operations")
	}
	return c.Validate()
}

// ReleaseOptions converts the release section into resolved options.
func (c *Config) ReleaseOptions() (domain.ReleaseOptions, error) {
	r := c.Release
	opts := domain.ReleaseOptions{
		DryRun:               r.DryRun,
		NoVerify:             r.NoVerify,
		Push:                 r.Push,
		Remote:               r.Remote,
		BaseBranch:           r.BaseBranch,
		TagPrefix:            r.TagPrefix,
		SyncVersions:         r.SyncVersions,
		SkipProjectChangelog: r.SkipProjectChangelog,
		SkipRootChangelog:    r.SkipRootChangelog,
		Preid:                r.Preid,
		ChangelogHeader:      r.ChangelogHeader,
		CommitMessageFormat:  r.CommitMessageFormat,
		TrackDeps:            r.TrackDeps,
		AllowEmptyRelease:    r.AllowEmptyRelease,
		SkipCommitTypes:      r.SkipCommitTypes,
	}
	if r.ReleaseAs != "" {
		rt, err := domain.ParseReleaseType(r.ReleaseAs)
		if err != nil {
			return opts, &domain.ConfigError{Field: "release.releaseAs", Reason: err.Error()}
		}
		opts.ReleaseType = rt
	}
	var err error
	if opts.PostTargets, err = domain.ParseDescriptors(c.PostTargets, "executor"); err != nil {
		return opts, &domain.ConfigError{Field: "postTargets", Reason: err.Error()}
	}
	if opts.Plugins, err = domain.ParseDescriptors(c.Plugins, "module"); err != nil {
		return opts, &domain.ConfigError{Field: "plugins", Reason: err.Error()}
	}
	return opts, nil
}

// NamedTargets returns the targets section as descriptors keyed by name.
func (c *Config) NamedTargets() map[string]domain.Descriptor {
	named := make(map[string]domain.Descriptor, len(c.Targets))
	for name, t := range c.Targets {
		opts := domain.Options{}
		for k, v := range t.Options {
			opts[k] = v
		}
		named[name] = domain.Descriptor{Kind: domain.DescriptorConfigured, Name: t.Executor, Options: opts}
	}
	return named
}

// ValidateGitHubToken validates GitHub token format (exported for reuse)
func ValidateGitHubToken(token string) error {
	token = strings.TrimSpace(token)
	if len(token) < 40 {
		return fmt.Errorf("token too short: expected at least 40 characters")
	}
	// Validate token format patterns
	classicPAT := regexp.MustCompile(`^[a-fA-F0-9]{40}$`)
	fineGrainedPAT := regexp.MustCompile(`^github_pat_[a-zA-Z0-9_]{82}$`)
	personalToken := regexp.MustCompile(`^ghp_[a-zA-Z0-9]{36}$`)
	appToken := regexp.MustCompile(`^ghs_[a-zA-Z0-9]{36}$`)
	oauthToken := regexp.MustCompile(`^gho_[a-zA-Z0-9]{36}$`)
	if !classicPAT.MatchString(token) &&
		!fineGrainedPAT.MatchString(token) &&
		!personalToken.MatchString(token) &&
		!appToken.MatchString(token) &&
		!oauthToken.MatchString(token) {
		return fmt.Errorf("invalid token format")
	}
	return nil
}

// ValidateGitHubOwnerRepo validates GitHub owner and repository names (exported for reuse)
func ValidateGitHubOwnerRepo(owner, repo string) error {
	if owner == "" {
		return fmt.Errorf("owner cannot be empty")
	}
	if repo == "" {
		return fmt.Errorf("repository cannot be empty")
	}
	validName := regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-_.]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)
	if !validName.MatchString(owner) {
		return fmt.Errorf("invalid owner format: %s", owner)
	}
	if len(owner) > 39 {
		return fmt.Errorf("owner too long: maximum 39 characters")
	}
	if !validName.MatchString(repo) {
		return fmt.Errorf("invalid repository format: %s", repo)
	}
	if len(repo) > 100 {
		return fmt.Errorf("repository too long: maximum 100 characters")
	}
	return nil
}

// ValidateTagPrefix rejects prefixes that cannot start a git tag name. An
// empty prefix selects the mode default.
func ValidateTagPrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	if strings.ContainsAny(prefix, " ~^:?*[\\") {
		return fmt.Errorf("prefix %q contains characters not allowed in tags", prefix)
	}
	if strings.Contains(prefix, "..") || strings.HasPrefix(prefix, "-") || strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("prefix %q cannot start a tag name", prefix)
	}
	return nil
}

// LoadConfig reads .monorelease.yaml from dir, applies environment
// overrides and fills GitHub coordinates from the environment or the origin
// remote.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	// Configure environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// BindEnv allows multiple env vars - it will check them in order
	for key, envs := range map[string][]string{
		"github_token": {"GITHUB_TOKEN", EnvPrefix + "_GITHUB_TOKEN"},
		"github_owner": {"GITHUB_OWNER", EnvPrefix + "_GITHUB_OWNER"},
		"github_repo":  {"GITHUB_REPO", EnvPrefix + "_GITHUB_REPO"},
		"npm_token":    {"NPM_TOKEN", EnvPrefix + "_NPM_TOKEN"},
	} {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s env: %w", key, err)
		}
	}
	defaults := DefaultConfig()
	v.SetDefault("workspace.name", defaults.Workspace.Name)
	v.SetDefault("release.remote", defaults.Release.Remote)
	v.SetDefault("release.baseBranch", defaults.Release.BaseBranch)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	config.Root = dir
	if err := populateRepositoryDefaults(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// populateRepositoryDefaults fills missing GitHub coordinates from
// GITHUB_REPOSITORY, then GITHUB_REPOSITORY_OWNER/NAME, then from the origin
// remote. Neither source existing is
// not an error.
func populateRepositoryDefaults(cfg *Config) error {
	if cfg.GithubOwner != "" && cfg.GithubRepo != "" {
		return nil
	}
	if slug := strings.TrimSpace(os.Getenv("GITHUB_REPOSITORY")); slug != "" {
		owner, repo, ok := strings.Cut(slug, "/")
		if !ok || owner == "" || repo == "" {
			return fmt.Errorf("invalid GITHUB_REPOSITORY %q: expected owner/repo", slug)
		}
		cfg.GithubOwner, cfg.GithubRepo = owner, repo
		return nil
	}
	if owner, repo := os.Getenv("GITHUB_REPOSITORY_OWNER"), os.Getenv("GITHUB_REPOSITORY_NAME"); owner != "" && repo != "" {
		cfg.GithubOwner, cfg.GithubRepo = owner, repo
		return nil
	}
	dir := cfg.Root
	if dir == "" {
		dir = "."
	}
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil
	}
	remote, err := repo.Remote("origin")
	if err != nil || len(remote.Config().URLs) == 0 {
		return nil
	}
	owner, name, err := parseGitRemoteURL(remote.Config().URLs[0])
	if err != nil {
		return nil
	}
	if cfg.GithubOwner == "" {
		cfg.GithubOwner = owner
	}
	if cfg.GithubRepo == "" {
		cfg.GithubRepo = name
	}
	return nil
}

// parseGitRemoteURL extracts owner and repository from https, ssh, scp-like
// and file remotes.
func parseGitRemoteURL(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	var p string
	switch {
	case strings.Contains(raw, "://"):
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", fmt.Errorf("invalid remote url %q: %w", raw, err)
		}
		p = u.Path
	case isSCPLike(raw):
		_, p, _ = strings.Cut(raw, ":")
	default:
		p = filepath.ToSlash(raw)
	}
	p = strings.TrimSuffix(strings.Trim(p, "/"), ".git")
	parts := strings.Split(p, "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return "", "", fmt.Errorf("cannot determine owner and repository from %q", raw)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

// isSCPLike matches "user@host:path" remotes.
func isSCPLike(raw string) bool {
	colon := strings.Index(raw, ":")
	if colon <= 0 {
		return false
	}
	slash := strings.Index(raw, "/")
	return slash == -1 || colon < slash
}
