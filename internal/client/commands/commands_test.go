package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonq/clonk/internal/client/auth"
	"github.com/colonq/clonk/internal/client/config"
	"github.com/colonq/clonk/internal/client/errors"
)

// mockPortal records what the login and redeem endpoints received
type mockPortal struct {
	server *httptest.Server

	loginCookie  *http.Cookie
	loginStatus  int
	redeemStatus int

	loginHits  atomic.Int32
	redeemHits atomic.Int32

	gotLogin  map[string]string
	gotCookie string
	gotName   string
	gotInput  string
}

func newMockPortal(t *testing.T) *mockPortal {
	m := &mockPortal{
		loginCookie:  &http.Cookie{Name: "authelia_session", Value: "s3ss10n", Path: "/"},
		loginStatus:  http.StatusOK,
		redeemStatus: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/firstfactor", func(w http.ResponseWriter, r *http.Request) {
		m.loginHits.Add(1)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&m.gotLogin))
		if m.loginCookie != nil {
			http.SetCookie(w, m.loginCookie)
		}
		w.WriteHeader(m.loginStatus)
	})
	mux.HandleFunc("/api/redeem", func(w http.ResponseWriter, r *http.Request) {
		m.redeemHits.Add(1)
		m.gotCookie = r.Header.Get("Cookie")
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		m.gotName = r.FormValue("name")
		m.gotInput = r.FormValue("input")
		w.WriteHeader(m.redeemStatus)
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockPortal) endpoints() config.Endpoints {
	return config.Endpoints{
		FirstFactor: m.server.URL + "/api/firstfactor",
		Target:      m.server.URL + "/menu",
		Redeem:      m.server.URL + "/api/redeem",
		Cookie:      m.server.URL,
	}
}

type testEnv struct {
	portal    *mockPortal
	credsPath string
	opts      Options
}

func newTestEnv(t *testing.T) *testEnv {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	m := newMockPortal(t)
	credsPath := filepath.Join(dir, ".clonk", "auth")
	return &testEnv{
		portal:    m,
		credsPath: credsPath,
		opts: Options{
			Endpoints:       m.endpoints(),
			CredentialsPath: credsPath,
			ConfigPath:      filepath.Join(dir, ".clonk", "config.yaml"),
		},
	}
}

func (e *testEnv) run(stdin string, args ...string) (string, error) {
	stdout, _, err := e.runCapture(stdin, args...)
	return stdout, err
}

// runCapture executes the command and returns stdout and stderr separately
func (e *testEnv) runCapture(stdin string, args ...string) (string, string, error) {
	cmd := NewRootCmd(e.opts)
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *testEnv) writeCredentials(t *testing.T, cookies string) {
	require.NoError(t, auth.NewStoreAt(e.credsPath).Save(&auth.Credentials{
		Username: "alice",
		Password: "hunter2",
		Cookies:  cookies,
	}))
}

func TestLogin_WritesCredentialRecord(t *testing.T) {
	env := newTestEnv(t)

	stdout, err := env.run("alice\nhunter2\n", "auth", "login")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Successfully logged in as alice")

	assert.Equal(t, map[string]string{
		"username":   "alice",
		"password":   "hunter2",
		"target_url": env.portal.server.URL + "/menu",
	}, env.portal.gotLogin)

	data, err := os.ReadFile(env.credsPath)
	require.NoError(t, err)
	var record map[string]string
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, map[string]string{
		"username": "alice",
		"password": "hunter2",
		"cookies":  "authelia_session=s3ss10n",
	}, record)
}

func TestLogin_TrimsInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("  alice  \n hunter2\t\n", "auth", "login")
	require.NoError(t, err)
	assert.Equal(t, "alice", env.portal.gotLogin["username"])
	assert.Equal(t, "hunter2", env.portal.gotLogin["password"])
}

func TestLogin_NoCookieLeavesFileUntouched(t *testing.T) {
	env := newTestEnv(t)
	env.writeCredentials(t, "authelia_session=previous")
	before, err := os.ReadFile(env.credsPath)
	require.NoError(t, err)

	env.portal.loginCookie = nil

	_, err = env.run("alice\nwrong\n", "auth", "login")
	require.Error(t, err)
	assert.Equal(t, errors.ExitAuthError, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "failed to get cookies")

	after, err := os.ReadFile(env.credsPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLogin_NoCookieDoesNotCreateFile(t *testing.T) {
	env := newTestEnv(t)
	env.portal.loginCookie = nil

	_, err := env.run("alice\nwrong\n", "auth", "login")
	require.Error(t, err)

	_, statErr := os.Stat(env.credsPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLogin_Unauthorized(t *testing.T) {
	env := newTestEnv(t)
	env.portal.loginCookie = nil
	env.portal.loginStatus = http.StatusUnauthorized

	_, err := env.run("alice\nwrong\n", "auth", "login")
	require.Error(t, err)
	assert.Equal(t, errors.ExitAuthError, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestLogin_MissingInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("alice\n", "auth", "login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read password")
	assert.Equal(t, int32(0), env.portal.loginHits.Load())
}

func TestLogin_JSONOutput(t *testing.T) {
	env := newTestEnv(t)

	stdout, stderr, err := env.runCapture("alice\nhunter2\n", "auth", "login", "--json")
	require.NoError(t, err)

	// stdout holds only the JSON document; prompts go to stderr
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Contains(t, stderr, "Enter username: ")
	assert.Contains(t, stderr, "Enter password: ")
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "alice", resp["data"].(map[string]interface{})["user"])
}

func TestRedeem_ReplaysStoredCookie(t *testing.T) {
	env := newTestEnv(t)
	env.writeCredentials(t, "authelia_session=s3ss10n; theme=dark")

	stdout, err := env.run("", "redeem", "hat", "--input", "blue")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Successfully redeemed")

	assert.Equal(t, "authelia_session=s3ss10n; theme=dark", env.portal.gotCookie)
	assert.Equal(t, "hat", env.portal.gotName)
	assert.Equal(t, "blue", env.portal.gotInput)
}

func TestRedeem_DefaultInput(t *testing.T) {
	env := newTestEnv(t)
	env.writeCredentials(t, "authelia_session=s3ss10n")

	_, err := env.run("", "redeem", "hat")
	require.NoError(t, err)
	assert.Equal(t, "undefined", env.portal.gotInput)
}

func TestRedeem_EmptyInputIsSentAsGiven(t *testing.T) {
	env := newTestEnv(t)
	env.writeCredentials(t, "authelia_session=s3ss10n")

	_, err := env.run("", "redeem", "hat", "--input", "")
	require.NoError(t, err)
	assert.Equal(t, "", env.portal.gotInput)
}

func TestRedeem_StatusFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		exitCode int
	}{
		{name: "bad request", status: http.StatusBadRequest, exitCode: errors.ExitInvalidArguments},
		{name: "unauthorized", status: http.StatusUnauthorized, exitCode: errors.ExitAuthError},
		{name: "forbidden", status: http.StatusForbidden, exitCode: errors.ExitPermissionDenied},
		{name: "not found", status: http.StatusNotFound, exitCode: errors.ExitNotFound},
		{name: "server error", status: http.StatusInternalServerError, exitCode: errors.ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.writeCredentials(t, "authelia_session=s3ss10n")
			env.portal.redeemStatus = tt.status

			stdout, err := env.run("", "redeem", "hat")
			require.Error(t, err)
			assert.NotContains(t, stdout, "Successfully redeemed")
			assert.Contains(t, err.Error(), strconv.Itoa(tt.status))
			assert.Contains(t, err.Error(), http.StatusText(tt.status))
			assert.Equal(t, tt.exitCode, errors.CodeOf(err))
		})
	}
}

func TestRedeem_MissingCredentials(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("", "redeem", "hat")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.Equal(t, errors.ExitAuthError, errors.CodeOf(err))
	assert.Equal(t, int32(0), env.portal.redeemHits.Load())
}

func TestRedeem_MalformedCredentials(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(env.credsPath), 0o700))
	require.NoError(t, os.WriteFile(env.credsPath, []byte("not json"), 0o600))

	_, err := env.run("", "redeem", "hat")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrMalformed)
	assert.Equal(t, int32(0), env.portal.redeemHits.Load())
}

func TestRedeem_RequiresName(t *testing.T) {
	env := newTestEnv(t)
	env.writeCredentials(t, "authelia_session=s3ss10n")

	for _, args := range [][]string{{"redeem"}, {"redeem", "  "}, {"redeem", "a", "b"}} {
		_, err := env.run("", args...)
		require.Error(t, err)
		assert.Equal(t, errors.ExitInvalidArguments, errors.CodeOf(err))
	}
	assert.Equal(t, int32(0), env.portal.redeemHits.Load())
}

func TestLoginThenRedeem(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("alice\nhunter2\n", "auth", "login")
	require.NoError(t, err)

	_, err = env.run("", "redeem", "hat")
	require.NoError(t, err)
	assert.Equal(t, "authelia_session=s3ss10n", env.portal.gotCookie)
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	env.writeCredentials(t, "authelia_session=s3ss10n; theme=dark")

	stdout, err := env.run("", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "alice")
	assert.Contains(t, stdout, env.credsPath)
	assert.NotContains(t, stdout, "hunter2")
	assert.NotContains(t, stdout, "s3ss10n")

	stdout, err = env.run("", "auth", "status", "--json")
	require.NoError(t, err)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "alice", data["user"])
	assert.Equal(t, float64(2), data["cookies"])
}

func TestLogin_PromptsOnStdout(t *testing.T) {
	env := newTestEnv(t)

	stdout, stderr, err := env.runCapture("alice\nhunter2\n", "auth", "login")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Enter username: ")
	assert.NotContains(t, stderr, "Enter username: ")
}

func TestInsecureCredentialsFileWarns(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "redeem", args: []string{"redeem", "hat"}},
		{name: "status", args: []string{"auth", "status"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.writeCredentials(t, "authelia_session=s3ss10n")
			require.NoError(t, os.Chmod(env.credsPath, 0o644))

			_, stderr, err := env.runCapture("", tt.args...)
			require.NoError(t, err)
			assert.Contains(t, stderr, "⚠ credentials file is accessible by other users")
			assert.Contains(t, stderr, "0644")
		})
	}
}

func TestSecureCredentialsFileDoesNotWarn(t *testing.T) {
	env := newTestEnv(t)
	env.writeCredentials(t, "authelia_session=s3ss10n")

	_, stderr, err := env.runCapture("", "redeem", "hat")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "⚠")
}

func TestStatus_NotLoggedIn(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("", "auth", "status")
	require.Error(t, err)
	assert.Equal(t, errors.ExitAuthError, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "clonk auth login")
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)

	stdout, err := env.run("", "version")
	require.NoError(t, err)
	assert.Equal(t, "clonk version "+version+"\n", stdout)
}

func TestInvalidConfiguration(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("CLONK_LOG_FORMAT", "xml")

	_, err := env.run("", "auth", "status")
	require.Error(t, err)
	assert.Equal(t, errors.ExitInvalidArguments, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "log_format")
}
