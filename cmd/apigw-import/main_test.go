package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apigateway-importer/internal/gateway/fakegateway"
	"apigateway-importer/internal/journal"
	ierrors "apigateway-importer/pkg/errors"
)

const usersDoc = "../../internal/swagger/testdata/users.json"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"apigw-import"}, args...))
	return out.String(), err
}

// withGateway routes every session of the test to an in-memory gateway.
func withGateway(t *testing.T) *fakegateway.Gateway {
	t.Helper()
	fake := fakegateway.New()
	gatewayClient = fake
	prev := slog.Default()
	t.Cleanup(func() {
		gatewayClient = nil
		slog.SetDefault(prev)
	})
	return fake
}

// remote prefixes args with the global flags a remote command needs in tests.
func remote(args ...string) []string {
	return append([]string{"--log-level", "silent", "--retry-delay", "5ms"}, args...)
}

func TestPlan(t *testing.T) {
	out, err := run(t, "plan", "-f", usersDoc, "--var", "ACCOUNT_ID=123456789012")
	require.NoError(t, err)

	want := "users-api: 2 resources, 4 methods, depth 2\n" +
		"stage: prod\n" +
		"/  [GET]\n" +
		"/user  [POST GET]\n" +
		"  /user/{id}  [DELETE]\n"
	assert.Equal(t, want, out)
}

func TestPlan_MissingFile(t *testing.T) {
	_, err := run(t, "plan", "-f", "testdata/nope.json")
	assert.ErrorContains(t, err, "failed to parse document")
}

func TestHistory_RequiresJournal(t *testing.T) {
	_, err := run(t, "history", "--run", "8a3c1f1e-7c55-4b8e-9a43-2d9f0e6b1a10")
	assert.ErrorContains(t, err, "history requires")

	_, err = run(t, "--journal", "mongo", "history", "--run", "8a3c1f1e-7c55-4b8e-9a43-2d9f0e6b1a10")
	assert.ErrorContains(t, err, "unknown journal backend")

	_, err = run(t, "history", "--run", "not-a-uuid")
	assert.ErrorContains(t, err, "invalid run id")
}

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"ACCOUNT_ID=123", "URL=https://a.example.com/x?y=1,2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"ACCOUNT_ID": "123",
		"URL":        "https://a.example.com/x?y=1,2",
	}, vars)

	vars, err = parseVars(nil)
	require.NoError(t, err)
	assert.Nil(t, vars)

	_, err = parseVars([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseVars([]string{"=x"})
	assert.Error(t, err)
}

func TestCreate_CleanupAfterTimeout(t *testing.T) {
	fake := withGateway(t)
	fake.ThrottleNext(fakegateway.OpCreateResource, 1_000_000)

	_, err := run(t, remote("--timeout", "100ms",
		"create", "-f", usersDoc, "--var", "ACCOUNT_ID=123456789012", "--cleanup-on-failure")...)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotContains(t, err.Error(), "cleanup also failed")
	assert.Equal(t, 1, fake.Calls(fakegateway.OpDeleteRestApi))
	assert.Empty(t, fake.APINames())
}

func TestCreate_TimeoutWithoutCleanupKeepsAPI(t *testing.T) {
	fake := withGateway(t)
	fake.ThrottleNext(fakegateway.OpCreateResource, 1_000_000)

	_, err := run(t, remote("--timeout", "50ms",
		"create", "-f", usersDoc, "--var", "ACCOUNT_ID=123456789012")...)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, fake.Calls(fakegateway.OpDeleteRestApi))
	assert.Equal(t, []string{"users-api"}, fake.APINames())
}

func TestRemoteCommands_UnknownAPI(t *testing.T) {
	fake := withGateway(t)

	for _, cmd := range []string{"deploy", "update", "delete", "resources"} {
		_, err := run(t, remote(cmd, "-f", usersDoc, "--var", "ACCOUNT_ID=123456789012")...)
		assert.True(t, ierrors.HasCode(err, ierrors.ErrCodeNotFound), "%s: %v", cmd, err)
	}
	assert.Zero(t, fake.Calls(fakegateway.OpCreateRestApi))
}

func TestUpdate_Deploy(t *testing.T) {
	fake := withGateway(t)

	out, err := run(t, remote("create", "-f", usersDoc, "--var", "ACCOUNT_ID=123456789012")...)
	require.NoError(t, err)
	apiID := strings.TrimSpace(out)
	require.NotEmpty(t, apiID)
	assert.Empty(t, fake.Stages(apiID))

	_, err = run(t, remote("update", "-f", usersDoc, "--var", "ACCOUNT_ID=123456789012", "--deploy")...)
	require.NoError(t, err)

	assert.Equal(t, []string{"prod"}, fake.Stages(apiID))
	assert.Equal(t, []string{"/", "/user", "/user/{id}"}, fake.Paths(apiID))
	assert.Equal(t, 1, fake.Calls(fakegateway.OpCreateRestApi))
}

type closeFailingStore struct {
	*journal.Memory
}

func (closeFailingStore) EnsureSchema(context.Context) error { return nil }
func (closeFailingStore) Close() error                       { return errors.New("connection reset") }

var _ journalStore = closeFailingStore{}

func TestCloseJournal_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	closeJournal(logger, closeFailingStore{Memory: journal.NewMemory()})

	assert.Contains(t, buf.String(), "failed to close journal")
	assert.Contains(t, buf.String(), "connection reset")
}
