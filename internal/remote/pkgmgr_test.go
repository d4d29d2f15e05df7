package remote

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPackageManagerPriority(t *testing.T) {
	tests := []struct {
		name    string
		present []string
		want    PackageManager
	}{
		{"debian", []string{"apt-get"}, PkgApt},
		{"fedora", []string{"dnf", "yum"}, PkgDnf},
		{"centos legacy", []string{"yum"}, PkgYum},
		{"alpine", []string{"apk"}, PkgApk},
		{"arch", []string{"pacman"}, PkgPacman},
		{"apt wins over everything", []string{"pacman", "apk", "apt-get"}, PkgApt},
		{"nothing", nil, PkgUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rules []rule
			for _, m := range managerOrder {
				found := false
				for _, p := range tt.present {
					if p == m.binary() {
						found = true
					}
				}
				exit := 1
				if found {
					exit = 0
				}
				rules = append(rules, rule{pattern: "command -v " + m.binary(), exit: exit})
			}

			got, err := DetectPackageManager(context.Background(), scripted(rules...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInstallerUnsupported(t *testing.T) {
	i := NewInstaller(scripted(), PkgUnsupported, ElevationRoot)

	err := i.Install(context.Background(), "git")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no supported package manager")
}

func TestInstallerRefreshesOnce(t *testing.T) {
	x := scripted()
	i := NewInstaller(x, PkgApt, ElevationRoot)

	require.NoError(t, i.Install(context.Background(), "git"))
	require.NoError(t, i.Install(context.Background(), "docker.io"))

	refreshes := 0
	for _, cmd := range x.Commands {
		if strings.Contains(cmd, "apt-get update") {
			refreshes++
		}
	}
	assert.Equal(t, 1, refreshes)
	assert.Contains(t, x.Commands, "DEBIAN_FRONTEND=noninteractive apt-get install -y -qq git")
	assert.Contains(t, x.Commands, "DEBIAN_FRONTEND=noninteractive apt-get install -y -qq docker.io")
}

func TestInstallerElevationWrapping(t *testing.T) {
	x := scripted()
	i := NewInstaller(x, PkgApt, ElevationSudo)

	require.NoError(t, i.Install(context.Background(), "git"))

	require.NotEmpty(t, x.Commands)
	for _, cmd := range x.Commands {
		assert.True(t, strings.HasPrefix(cmd, "sudo "), "command not elevated: %s", cmd)
	}
}

func TestInstallerCommands(t *testing.T) {
	tests := []struct {
		manager     PackageManager
		wantInstall string
		wantRefresh string
	}{
		{PkgApt, "DEBIAN_FRONTEND=noninteractive apt-get install -y -qq git", "apt-get update -qq"},
		{PkgDnf, "dnf install -y -q git", ""},
		{PkgYum, "yum install -y -q git", ""},
		{PkgApk, "apk add -q git", "apk update -q"},
		{PkgPacman, "pacman -S --noconfirm --needed git", "pacman -Sy --noconfirm"},
	}

	for _, tt := range tests {
		t.Run(tt.manager.String(), func(t *testing.T) {
			x := scripted()
			i := NewInstaller(x, tt.manager, ElevationRoot)
			require.NoError(t, i.Install(context.Background(), "git"))

			assert.Contains(t, x.Commands, tt.wantInstall)
			if tt.wantRefresh == "" {
				assert.Len(t, x.Commands, 1)
			} else {
				assert.Equal(t, tt.wantRefresh, x.Commands[0])
			}
		})
	}
}

func TestInstallerFailurePropagates(t *testing.T) {
	x := scripted(rule{pattern: "install -y -qq git", exit: 100})
	i := NewInstaller(x, PkgApt, ElevationRoot)

	err := i.Install(context.Background(), "git")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to install git")
}
