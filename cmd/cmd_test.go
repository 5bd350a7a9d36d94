package cmd

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Daskott/lifealert/server"
	"github.com/Daskott/lifealert/server/auth/key"
	"github.com/Daskott/lifealert/server/logger"
	"github.com/Daskott/lifealert/server/models"
	"github.com/Daskott/lifealert/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestDataProvider []struct {
	description string
	args        []string
	expectedOut string
}

type nopSMS struct{}

func (nopSMS) SendSMS(ctx context.Context, to, body string) error { return nil }

type nopEmail struct{}

func (nopEmail) SendEmail(ctx context.Context, to, subject, html string) error { return nil }

func newLifeAlertServer(t *testing.T) *httptest.Server {
	store, err := models.InitializeTestDb()
	require.Nil(t, err)
	t.Cleanup(func() { store.Close() })

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.Nil(t, err)

	s, err := server.NewServer(server.Options{
		Store:   store,
		KeyPair: &key.KeyPair{Kid: "test-kid", PrivateKey: privateKey, PublicKey: &privateKey.PublicKey},
		SMS:     nopSMS{},
		Email:   nopEmail{},
		Logger:  logger.NewNop(),
	})
	require.Nil(t, err)

	httpServer := httptest.NewServer(s.Router())
	t.Cleanup(httpServer.Close)

	return httpServer
}

// executeCommand runs a fresh root command with args & returns everything it printed
func executeCommand(args ...string) (string, error) {
	buff := new(bytes.Buffer)

	cmd := createRootCmd()
	cmd.SetOut(buff)
	cmd.SetErr(buff)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buff.String(), err
}

func TestClientCommands(t *testing.T) {
	httpServer := newLifeAlertServer(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	globalArgs := []string{"--config", cfgPath, "--server", httpServer.URL}

	cases := TestDataProvider{
		{
			description: "Should require a session before reading contacts",
			args:        []string{"contacts", "get"},
			expectedOut: "not signed in",
		},
		{
			description: "Should create an account",
			args:        []string{"signup", "--email", "ada@x.com", "--password", "s3cret!"},
			expectedOut: "Account created for ada@x.com",
		},
		{
			description: "Should NOT sign in with the wrong password",
			args:        []string{"login", "--email", "ada@x.com", "--password", "wrong"},
			expectedOut: "email/password is invalid",
		},
		{
			description: "Should sign in",
			args:        []string{"login", "--email", "ada@x.com", "--password", "s3cret!"},
			expectedOut: "Signed in as ada@x.com",
		},
		{
			description: "Should show empty contacts",
			args:        []string{"contacts", "get"},
			expectedOut: "Phones: \nEmails: \n",
		},
		{
			description: "Should NOT send an alert without contacts",
			args:        []string{"alert", "--lat", "28.7041", "--lng", "77.1025"},
			expectedOut: "No emergency contacts configured",
		},
		{
			description: "Should NOT update contacts without any list",
			args:        []string{"contacts", "set"},
			expectedOut: "at least one of --phones or --emails must be set",
		},
		{
			description: "Should save phones",
			args:        []string{"contacts", "set", "--phones", "+15551111111"},
			expectedOut: "Settings saved",
		},
		{
			description: "Should save emails & keep phones",
			args:        []string{"contacts", "set", "--emails", "mum@x.com"},
			expectedOut: "Settings saved",
		},
		{
			description: "Should show saved contacts",
			args:        []string{"contacts", "get"},
			expectedOut: "Phones: +15551111111\nEmails: mum@x.com\n",
		},
		{
			description: "Should NOT send an alert with only one coordinate",
			args:        []string{"alert", "--lat", "28.7041"},
			expectedOut: "--lat and --lng must be set together",
		},
		{
			description: "Should send an alert",
			args:        []string{"alert", "--lat", "28.7041", "--lng", "77.1025"},
			expectedOut: "ALERT SENT SUCCESSFULLY! reached 2 of 2 contacts",
		},
		{
			description: "Should list sent alerts",
			args:        []string{"alerts", "list"},
			expectedOut: "28.7041, 77.1025",
		},
		{
			description: "Should sign out",
			args:        []string{"logout"},
			expectedOut: "Signed out",
		},
		{
			description: "Should require a session after signing out",
			args:        []string{"alerts", "list"},
			expectedOut: "not signed in",
		},
	}

	for _, tcase := range cases {
		out, _ := executeCommand(append(tcase.args, globalArgs...)...)
		assert.Contains(t, out, tcase.expectedOut, tcase.description)
	}
}

func TestAlertCmdReportsLocationFailure(t *testing.T) {
	httpServer := newLifeAlertServer(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	globalArgs := []string{"--config", cfgPath, "--server", httpServer.URL}

	_, err := executeCommand(append([]string{"signup", "-e", "ada@x.com", "-p", "s3cret!"}, globalArgs...)...)
	require.Nil(t, err)
	_, err = executeCommand(append([]string{"login", "-e", "ada@x.com", "-p", "s3cret!"}, globalArgs...)...)
	require.Nil(t, err)

	// nothing listens on the geolocation url
	geo := httptest.NewServer(nil)
	geo.Close()

	out, err := executeCommand(append([]string{"alert", "--locate-url", geo.URL}, globalArgs...)...)
	assert.NotNil(t, err)
	assert.Contains(t, out, "Location unavailable")
}

func TestLoadServerConfig(t *testing.T) {
	savedIsDevEnv, savedServerCfgFile := isDevEnv, serverCfgFile
	defer func() {
		isDevEnv, serverCfgFile = savedIsDevEnv, savedServerCfgFile
	}()

	isDevEnv, serverCfgFile = false, ""
	_, err := loadServerConfig()
	assert.NotNil(t, err)

	isDevEnv = true
	serverConfig, err := loadServerConfig()
	require.Nil(t, err)
	assert.Equal(t, shared.SQLITE_DRIVER, serverConfig.Database.Driver)
	assert.Equal(t, 3000, serverConfig.LifeAlert.Listener.Port)
	assert.Equal(t, shared.LOCAL_FEED, serverConfig.Feed.Source)
	assert.False(t, serverConfig.Google.Storage.EnableSqliteBackup)

	_, err = key.NewKeyPairFromRSAPrivateKeyPem(serverConfig.LifeAlert.PrivateKeyPem)
	assert.Nil(t, err)

	isDevEnv = false
	serverCfgFile = filepath.Join(t.TempDir(), "server.yml")
	require.Nil(t, os.WriteFile(serverCfgFile, []byte("database:\n  driver: mysql\n  dsn: x\n"), 0600))
	_, err = loadServerConfig()
	assert.NotNil(t, err)
}
