package googleapi

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const oauthClientJSON = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestHTTPClient_MissingCredentials(t *testing.T) {
	creds := Credentials{CredentialsPath: filepath.Join(t.TempDir(), "missing.json")}

	_, err := creds.HTTPClient(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to read credentials file")
}

func TestHTTPClient_OAuthWithoutToken(t *testing.T) {
	dir := t.TempDir()
	creds := Credentials{
		CredentialsPath: writeFile(t, dir, "credentials.json", oauthClientJSON),
		TokenPath:       filepath.Join(dir, "token.json"),
	}

	_, err := creds.HTTPClient(context.Background())
	assert.ErrorIs(t, err, ErrTokenMissing)
}

func TestHTTPClient_OAuthWithCachedToken(t *testing.T) {
	dir := t.TempDir()
	creds := Credentials{
		CredentialsPath: writeFile(t, dir, "credentials.json", oauthClientJSON),
		TokenPath:       filepath.Join(dir, "token.json"),
	}
	require.NoError(t, SaveToken(creds.TokenPath, &oauth2.Token{
		AccessToken: "access",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	client, err := creds.HTTPClient(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestHTTPClient_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	creds := Credentials{CredentialsPath: writeFile(t, dir, "credentials.json", "{not json")}

	_, err := creds.HTTPClient(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to parse credentials")
}

func TestOAuthConfig(t *testing.T) {
	dir := t.TempDir()
	creds := Credentials{CredentialsPath: writeFile(t, dir, "credentials.json", oauthClientJSON)}

	config, err := creds.OAuthConfig()
	require.NoError(t, err)
	assert.Equal(t, "id.apps.googleusercontent.com", config.ClientID)
	assert.Contains(t, AuthCodeURL(config), "access_type=offline")

	sa := Credentials{CredentialsPath: writeFile(t, dir, "sa.json", `{"type":"service_account"}`)}
	_, err = sa.OAuthConfig()
	assert.Error(t, err)
}

func TestSaveTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "abc", RefreshToken: "def"}))

	tok, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, "def", tok.RefreshToken)
}
