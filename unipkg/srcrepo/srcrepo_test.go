package srcrepo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	cm "github.com/unipkg/unipkg/unipkg/commandmanager"
)

type scriptedRunner struct {
	responses map[string]cm.CommandResult
	errs      map[string]error
	calls     []string
}

func (s *scriptedRunner) Run(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	line := config.Command
	if len(config.Args) > 0 {
		line += " " + strings.Join(config.Args, " ")
	}
	s.calls = append(s.calls, line)
	return s.responses[line], s.errs[line]
}

func (s *scriptedRunner) RunLocal(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	return s.Run(ctx, config)
}

func (s *scriptedRunner) RunRemote(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	return s.Run(ctx, config)
}

func (s *scriptedRunner) HasCommand(ctx context.Context, name string) bool { return true }

func newSync(runner *scriptedRunner) *RepoSync {
	return &RepoSync{
		CommandManager: runner,
		Path:           "/home/op/void-packages",
		URL:            "https://github.com/void-linux/void-packages.git",
		Branch:         "master",
	}
}

func TestEnsureClonesWhenAbsent(t *testing.T) {
	runner := &scriptedRunner{
		responses: map[string]cm.CommandResult{
			"test -d /home/op/void-packages/.git": {ExitCode: 1},
		},
	}
	repo := newSync(runner)

	err := repo.Ensure(context.Background())
	assert.NoError(t, err)
	assert.Contains(t, runner.calls, "git clone https://github.com/void-linux/void-packages.git /home/op/void-packages")
}

func TestEnsurePullsWhenPresent(t *testing.T) {
	runner := &scriptedRunner{
		responses: map[string]cm.CommandResult{
			"test -d /home/op/void-packages/.git": {ExitCode: 0},
		},
	}
	repo := newSync(runner)

	err := repo.Ensure(context.Background())
	assert.NoError(t, err)
	assert.Contains(t, runner.calls, "git pull origin master")
}

func TestEnsureToleratesFailedPull(t *testing.T) {
	runner := &scriptedRunner{
		responses: map[string]cm.CommandResult{
			"test -d /home/op/void-packages/.git": {ExitCode: 0},
		},
		errs: map[string]error{
			"git pull origin master": errors.New("network down"),
		},
	}
	repo := newSync(runner)

	err := repo.Ensure(context.Background())
	assert.NoError(t, err, "a stale checkout is still usable")
}

func TestEnsureFailedCloneIsFatal(t *testing.T) {
	runner := &scriptedRunner{
		responses: map[string]cm.CommandResult{
			"test -d /home/op/void-packages/.git": {ExitCode: 1},
		},
		errs: map[string]error{
			"git clone https://github.com/void-linux/void-packages.git /home/op/void-packages": errors.New("repository not found"),
		},
	}
	repo := newSync(runner)

	err := repo.Ensure(context.Background())
	assert.Error(t, err)
}

func TestPullDefaultsToMaster(t *testing.T) {
	runner := &scriptedRunner{}
	repo := newSync(runner)
	repo.Branch = ""

	err := repo.Pull(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"git pull origin master"}, runner.calls)
}
