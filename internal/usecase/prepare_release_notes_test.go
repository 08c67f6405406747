package usecase

import (
	"context"
	"testing"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRelease(t *testing.T, version, previous, notes string) *domain.Release {
	t.Helper()
	v, err := domain.NewVersion(version)
	require.NoError(t, err)
	release := &domain.Release{ProjectName: "lib-a", Version: v, TagPrefix: "lib-a-", Notes: notes}
	if previous != "" {
		p, err := domain.NewVersion(previous)
		require.NoError(t, err)
		release.PreviousVersion = p
	}
	return release
}

func TestPrepareReleaseNotesUseCase_Execute(t *testing.T) {
	uc := &PrepareReleaseNotesUseCase{}
	ctx := context.Background()
	t.Run("Should keep changelog markdown and link the comparison", func(t *testing.T) {
		release := newRelease(t, "1.1.0", "1.0.0",
			"## 1.1.0 (2024-05-01)\n\n### Features\n\n* **core:** don't break \"things\"\n\n> note")
		body, err := uc.Execute(ctx, release)
		require.NoError(t, err)
		assert.Contains(t, body, "### Features")
		assert.Contains(t, body, `* **core:** don't break "things"`)
		assert.Contains(t, body, "> note")
		assert.Contains(t, body, "**Full Changelog**: lib-a-1.0.0...lib-a-1.1.0")
	})
	t.Run("Should omit the comparison for a first release", func(t *testing.T) {
		body, err := uc.Execute(ctx, newRelease(t, "0.1.0", "0.0.0", "* first"))
		require.NoError(t, err)
		assert.Equal(t, "* first", body)
	})
	t.Run("Should escape embedded HTML", func(t *testing.T) {
		body, err := uc.Execute(ctx, newRelease(t, "1.0.1", "", "* fix <img src=x onerror=alert(1)>"))
		require.NoError(t, err)
		assert.NotContains(t, body, "<img")
		assert.Contains(t, body, "&lt;img")
	})
	t.Run("Should reject template markers in notes", func(t *testing.T) {
		_, err := uc.Execute(ctx, newRelease(t, "1.0.1", "", "* {{ .Secret }}"))
		assert.ErrorContains(t, err, "potential injection")
	})
	t.Run("Should require a version", func(t *testing.T) {
		_, err := uc.Execute(ctx, &domain.Release{})
		assert.Error(t, err)
	})
}
