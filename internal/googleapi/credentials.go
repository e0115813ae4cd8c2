package googleapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/sheets/v4"
)

// Scopes requested for every Workspace client the pipeline builds.
var Scopes = []string{
	sheets.SpreadsheetsReadonlyScope,
	drive.DriveReadonlyScope,
	calendar.CalendarEventsScope,
	gmail.GmailSendScope,
}

// ErrTokenMissing is returned when OAuth client credentials are configured
// but no cached token exists yet.
var ErrTokenMissing = errors.New("oauth token not found; run `nexushire auth` first")

// Credentials locates the Google credentials file and the cached user token.
type Credentials struct {
	CredentialsPath string
	TokenPath       string
}

// HTTPClient returns an authorized client. Service account keys are used
// directly; OAuth client secrets require a token previously saved with
// SaveToken.
func (c Credentials) HTTPClient(ctx context.Context, scopes ...string) (*http.Client, error) {
	if len(scopes) == 0 {
		scopes = Scopes
	}

	b, err := os.ReadFile(c.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	if isServiceAccount(b) {
		creds, err := google.CredentialsFromJSON(ctx, b, scopes...)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
		}
		return oauth2.NewClient(ctx, creds.TokenSource), nil
	}

	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	tok, err := tokenFromFile(c.TokenPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrTokenMissing
		}
		return nil, fmt.Errorf("unable to read token file: %w", err)
	}

	return config.Client(ctx, tok), nil
}

// OAuthConfig parses the OAuth client secrets for the interactive flow.
func (c Credentials) OAuthConfig(scopes ...string) (*oauth2.Config, error) {
	if len(scopes) == 0 {
		scopes = Scopes
	}
	b, err := os.ReadFile(c.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}
	if isServiceAccount(b) {
		return nil, errors.New("service account credentials do not need a user token")
	}
	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	return config, nil
}

// AuthCodeURL returns the consent URL for offline access.
func AuthCodeURL(config *oauth2.Config) string {
	return config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
}

// ExchangeAndSave trades an authorization code for a token and caches it.
func (c Credentials) ExchangeAndSave(ctx context.Context, config *oauth2.Config, code string) error {
	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return SaveToken(c.TokenPath, tok)
}

func isServiceAccount(b []byte) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return false
	}
	return probe.Type == "service_account"
}

// tokenFromFile retrieves a token from a local file
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// SaveToken saves a token to a file path
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
