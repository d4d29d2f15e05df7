package remote

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xilma-bot/xilmadeploy/internal/config"
)

var testRepo = config.Repository{
	URL: "https://github.com/example/xilma.git",
	Ref: "main",
	Dir: "/opt/xilma",
}

func TestDetectRepoState(t *testing.T) {
	tests := []struct {
		name   string
		exists int
		isGit  int
		want   RepoState
	}{
		{"absent", 1, 1, RepoAbsent},
		{"plain directory", 0, 1, RepoPresentNotGit},
		{"git checkout", 0, 0, RepoPresentGit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := scripted(
				rule{pattern: "test -e", exit: tt.exists},
				rule{pattern: "test -d", exit: tt.isGit},
			)
			got, err := DetectRepoState(context.Background(), x, "/opt/xilma")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconcileDeployClones(t *testing.T) {
	x := scripted(rule{pattern: "test -e", exit: 1})
	r := NewReconciler(x, ElevationSudo, "deploy")

	require.NoError(t, r.Reconcile(context.Background(), config.ModeDeploy, testRepo))

	joined := strings.Join(x.Commands, "\n")
	assert.Contains(t, joined, "sudo mkdir -p '/opt/xilma'")
	assert.Contains(t, joined, "sudo chown 'deploy':'deploy' '/opt/xilma'")
	assert.Contains(t, joined, "git clone --depth 1 --branch 'main' 'https://github.com/example/xilma.git' '/opt/xilma'")
}

func TestReconcileDeployCloneAsRootSkipsChown(t *testing.T) {
	x := scripted(rule{pattern: "test -e", exit: 1})
	r := NewReconciler(x, ElevationRoot, "root")

	require.NoError(t, r.Reconcile(context.Background(), config.ModeDeploy, testRepo))

	joined := strings.Join(x.Commands, "\n")
	assert.Contains(t, joined, "mkdir -p '/opt/xilma'")
	assert.NotContains(t, joined, "chown")
	assert.NotContains(t, joined, "sudo")
}

func TestReconcileUpdateAbsentFails(t *testing.T) {
	x := scripted(rule{pattern: "test -e", exit: 1})
	r := NewReconciler(x, ElevationRoot, "root")

	err := r.Reconcile(context.Background(), config.ModeUpdate, testRepo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run deploy first")
}

func TestReconcileNonGitDirectoryFailsWithoutMutation(t *testing.T) {
	x := scripted(
		rule{pattern: "test -e", exit: 0},
		rule{pattern: "test -d", exit: 1},
	)
	r := NewReconciler(x, ElevationRoot, "root")

	err := r.Reconcile(context.Background(), config.ModeDeploy, testRepo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a git repository")

	// Only the two state probes ran; nothing touched the directory.
	require.Len(t, x.Commands, 2)
	for _, cmd := range x.Commands {
		assert.True(t, strings.HasPrefix(cmd, "test "), "unexpected command: %s", cmd)
	}
}

func TestReconcileDeployExistingRepo(t *testing.T) {
	x := scripted(
		rule{pattern: "test -e", exit: 0},
		rule{pattern: "test -d", exit: 0},
	)
	r := NewReconciler(x, ElevationRoot, "root")

	require.NoError(t, r.Reconcile(context.Background(), config.ModeDeploy, testRepo))

	joined := strings.Join(x.Commands, "\n")
	assert.Contains(t, joined, "git -C '/opt/xilma' fetch --all --prune")
	assert.Contains(t, joined, "git -C '/opt/xilma' checkout 'main'")
	assert.Contains(t, joined, "git -C '/opt/xilma' pull --ff-only")
}

func TestReconcileUpdateKeepsCurrentRef(t *testing.T) {
	x := scripted(
		rule{pattern: "test -e", exit: 0},
		rule{pattern: "test -d", exit: 0},
		rule{pattern: "symbolic-ref", exit: 0},
	)
	r := NewReconciler(x, ElevationRoot, "root")

	repo := testRepo
	repo.Ref = ""
	require.NoError(t, r.Reconcile(context.Background(), config.ModeUpdate, repo))

	joined := strings.Join(x.Commands, "\n")
	assert.Contains(t, joined, "fetch --all --prune")
	assert.NotContains(t, joined, "checkout")
	assert.Contains(t, joined, "pull --ff-only")
}

func TestReconcileUpdateDetachedSkipsPull(t *testing.T) {
	x := scripted(
		rule{pattern: "test -e", exit: 0},
		rule{pattern: "test -d", exit: 0},
		rule{pattern: "symbolic-ref", exit: 1},
	)
	r := NewReconciler(x, ElevationRoot, "root")

	repo := testRepo
	repo.Ref = "v1.4.0"
	require.NoError(t, r.Reconcile(context.Background(), config.ModeUpdate, repo))

	joined := strings.Join(x.Commands, "\n")
	assert.Contains(t, joined, "checkout 'v1.4.0'")
	assert.NotContains(t, joined, "pull")
}

func TestReconcileCloneFailurePropagates(t *testing.T) {
	x := scripted(
		rule{pattern: "test -e", exit: 1},
		rule{pattern: "git clone", exit: 128},
	)
	r := NewReconciler(x, ElevationRoot, "root")

	err := r.Reconcile(context.Background(), config.ModeDeploy, testRepo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit 128")
}
