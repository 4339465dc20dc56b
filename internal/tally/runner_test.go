package tally

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blues/qfround/internal/config"
	"github.com/blues/qfround/internal/model"
	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	failures int
	content  string
	output   string
	calls    [][]string
}

func (e *fakeEngine) Run(ctx context.Context, args []string) error {
	e.calls = append(e.calls, args)
	if len(e.calls) <= e.failures {
		return errors.New("engine crashed")
	}
	if e.content == "" {
		return nil
	}
	return os.WriteFile(e.output, []byte(e.content), 0o600)
}

func newTestRunner(t *testing.T, engine *fakeEngine, attempts int) *Runner {
	t.Helper()
	engine.output = filepath.Join(t.TempDir(), "tally.json")
	r := NewRunner(engine, config.TallyConfig{
		CoordinatorKey: "macisk.secret",
		OutputFile:     engine.output,
		MaxAttempts:    attempts,
	}, "http://localhost:8545")
	r.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return r
}

var request = Request{
	Round: common.HexToAddress("0x0000000000000000000000000000000000000d01"),
	MACI:  common.HexToAddress("0x0000000000000000000000000000000000000c01"),
}

func leafOf(args []string) string {
	for i, a := range args {
		if a == "--leaf-zero" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestRunRepeatsUntilArtifact(t *testing.T) {
	engine := &fakeEngine{failures: 2, content: `{"provider": "circom", "results": {"tally": ["1", "2"]}}`}
	r := newTestRunner(t, engine, 5)

	result, err := r.Run(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "circom", result.Artifact["provider"])
	require.Len(t, engine.calls, 3)

	assert.Contains(t, engine.calls[0], request.MACI.Hex())
	assert.Contains(t, engine.calls[0], "http://localhost:8545")
	leaves := map[string]bool{}
	for _, call := range engine.calls {
		leaf := leafOf(call)
		assert.Len(t, leaf, 66)
		leaves[leaf] = true
	}
	assert.Len(t, leaves, 3)
}

func TestRunFailsAfterMaxAttempts(t *testing.T) {
	engine := &fakeEngine{failures: 10, content: `{"results": {}}`}
	r := newTestRunner(t, engine, 3)

	_, err := r.Run(context.Background(), request)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrTallyEngine))
	assert.Len(t, engine.calls, 3)
}

func TestRunMissingOrEmptyArtifact(t *testing.T) {
	for _, content := range []string{"", "   ", "{}"} {
		engine := &fakeEngine{content: content}
		r := newTestRunner(t, engine, 2)

		_, err := r.Run(context.Background(), request)
		require.Error(t, err, "content %q", content)
		assert.True(t, errors.Is(err, model.ErrTallyEngine))
	}
}

func TestRunIgnoresStaleArtifact(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestRunner(t, engine, 1)
	require.NoError(t, os.WriteFile(engine.output, []byte(`{"stale": true}`), 0o600))

	_, err := r.Run(context.Background(), request)
	assert.True(t, errors.Is(err, model.ErrTallyEngine))
}

func TestRunRequiresCoordinatorKey(t *testing.T) {
	r := NewRunner(&fakeEngine{}, config.TallyConfig{MaxAttempts: 1}, "")
	_, err := r.Run(context.Background(), request)
	assert.True(t, errors.Is(err, model.ErrTallyEngine))
}

func TestRandomLeaf(t *testing.T) {
	a, err := RandomLeaf()
	require.NoError(t, err)
	b, err := RandomLeaf()
	require.NoError(t, err)
	assert.Len(t, a, 66)
	assert.NotEqual(t, a, b)
}
