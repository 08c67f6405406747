package cmd

import (
	"fmt"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type releaseFlags struct {
	dryRun               bool
	noVerify             bool
	push                 bool
	remote               string
	baseBranch           string
	tagPrefix            string
	syncVersions         bool
	skipProjectChangelog bool
	skipRootChangelog    bool
	releaseAs            string
	preid                string
	changelogHeader      string
	commitMessageFormat  string
	trackDeps            bool
	allowEmptyRelease    bool
	skipCommitTypes      []string
}

func newVersionCmd() *cobra.Command {
	return newReleaseCmd("version [project]", "Compute the next version and release a project", false)
}

func newReleaseCmd(use, short string, forceDryRun bool) *cobra.Command {
	var flags releaseFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: `Compute the next semantic version of a project from its conventional commits
and run the release phases:
- validate and prepare plugins
- write changelogs
- commit and tag
- push (with --push)
- run post-targets and publish plugins

With --sync-versions every project is released together under the workspace
root version and the project argument is ignored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project := ""
			if len(args) == 1 {
				project = args[0]
			}
			return runRelease(cmd, project, flags, forceDryRun)
		},
	}
	f := cmd.Flags()
	if !forceDryRun {
		f.BoolVar(&flags.dryRun, "dry-run", false, "Compute the release without writing, committing or publishing")
	}
	f.BoolVar(&flags.noVerify, "no-verify", false, "Skip git hooks when committing")
	f.BoolVar(&flags.push, "push", false, "Push the release commit and tag")
	f.StringVar(&flags.remote, "remote", domain.DefaultRemote, "Remote to push to")
	f.StringVar(&flags.baseBranch, "base-branch", domain.DefaultBaseBranch, "Branch to push to")
	f.StringVar(&flags.tagPrefix, "tag-prefix", "", "Tag prefix template, supports ${projectName}")
	f.BoolVar(&flags.syncVersions, "sync-versions", false, "Release every project with one shared version")
	f.BoolVar(&flags.skipProjectChangelog, "skip-project-changelog", false, "Do not write project changelogs")
	f.BoolVar(&flags.skipRootChangelog, "skip-root-changelog", false, "Do not write the workspace changelog")
	f.StringVar(&flags.releaseAs, "release-as", "", "Force a release type (major, minor, patch, premajor, preminor, prepatch, prerelease)")
	f.StringVar(&flags.preid, "preid", "", "Prerelease identifier, e.g. alpha")
	f.StringVar(&flags.changelogHeader, "changelog-header", "", "Header written at the top of new changelogs")
	f.StringVar(&flags.commitMessageFormat, "commit-message-format", "", "Release commit message template")
	f.BoolVar(&flags.trackDeps, "track-deps", false, "Bump when a dependency changed")
	f.BoolVar(&flags.allowEmptyRelease, "allow-empty-release", false, "Release a patch even without relevant commits")
	f.StringSliceVar(&flags.skipCommitTypes, "skip-commit-types", nil, "Commit types excluded from changelogs")
	return cmd
}

func runRelease(cmd *cobra.Command, project string, flags releaseFlags, forceDryRun bool) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	ctx := cmd.Context()
	c, err := newContainer(workDir, logger)
	if err != nil {
		return err
	}
	opts, err := c.cfg.ReleaseOptions()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, flags, &opts); err != nil {
		return err
	}
	if forceDryRun {
		opts.DryRun = true
	}
	if err := c.lock.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.lock.Release(); err != nil {
			logger.Warn("failed to release lock", zap.Error(err))
		}
	}()
	result := c.orch.Version(ctx, project, opts)
	if !result.Success {
		return result.Err
	}
	out := cmd.OutOrStdout()
	switch {
	case result.Tag == "":
		fmt.Fprintln(out, "No release: nothing changed since the last release")
	case opts.DryRun:
		fmt.Fprintf(out, "Would release %s (dry run)\n\n%s\n", result.Tag, result.Notes)
	default:
		fmt.Fprintf(out, "Released %s\n", result.Tag)
	}
	return nil
}

// applyFlags overrides configured release options with explicitly set flags.
func applyFlags(cmd *cobra.Command, flags releaseFlags, opts *domain.ReleaseOptions) error {
	f := cmd.Flags()
	setBool := func(name string, dst *bool, v bool) {
		if f.Changed(name) {
			*dst = v
		}
	}
	setString := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	setBool("dry-run", &opts.DryRun, flags.dryRun)
	setBool("no-verify", &opts.NoVerify, flags.noVerify)
	setBool("push", &opts.Push, flags.push)
	setString("remote", &opts.Remote, flags.remote)
	setString("base-branch", &opts.BaseBranch, flags.baseBranch)
	setString("tag-prefix", &opts.TagPrefix, flags.tagPrefix)
	setBool("sync-versions", &opts.SyncVersions, flags.syncVersions)
	setBool("skip-project-changelog", &opts.SkipProjectChangelog, flags.skipProjectChangelog)
	setBool("skip-root-changelog", &opts.SkipRootChangelog, flags.skipRootChangelog)
	setString("preid", &opts.Preid, flags.preid)
	setString("changelog-header", &opts.ChangelogHeader, flags.changelogHeader)
	setString("commit-message-format", &opts.CommitMessageFormat, flags.commitMessageFormat)
	setBool("track-deps", &opts.TrackDeps, flags.trackDeps)
	setBool("allow-empty-release", &opts.AllowEmptyRelease, flags.allowEmptyRelease)
	if f.Changed("skip-commit-types") {
		opts.SkipCommitTypes = flags.skipCommitTypes
	}
	if f.Changed("release-as") {
		rt, err := domain.ParseReleaseType(flags.releaseAs)
		if err != nil {
			return &domain.ConfigError{Field: "releaseAs", Reason: err.Error()}
		}
		opts.ReleaseType = rt
	}
	return nil
}
