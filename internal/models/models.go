package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Candidate statuses recorded per processed row.
const (
	StatusEligible    = "ELIGIBLE"
	StatusNotEligible = "NOT ELIGIBLE"
	StatusError       = "ERROR"
)

// Request defaults applied when a field is omitted.
const (
	DefaultCompanyName      = "DUDE TECH"
	DefaultTagline          = "Building smart hiring systems"
	DefaultRoleName         = "Software Engineer"
	DefaultRoleRequirements = "Programming skills AND CS/IT education"
)

// DefaultSMTPPort is used when an SMTP config omits the port.
const DefaultSMTPPort = 465

// User is an authentication identity
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// ScreeningBatch identifies one screening run for a role
type ScreeningBatch struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	CompanyName      string    `json:"company_name"`
	Tagline          string    `json:"tagline"`
	RoleName         string    `json:"role_name"`
	RoleRequirements string    `json:"role_requirements"`
	CreatedAt        time.Time `json:"created_at"`
}

// CandidateResult is the persisted outcome for one candidate row
type CandidateResult struct {
	ID        int64     `json:"id"`
	BatchID   int64     `json:"batch_id"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// BatchSummary is a batch with its persisted result count
type BatchSummary struct {
	ScreeningBatch
	ResultCount int `json:"count"`
}

// SMTPConfig holds custom SMTP delivery settings
type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// UnmarshalJSON accepts the port as a number or a numeric string.
func (c *SMTPConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		Host     string          `json:"host"`
		Port     json.RawMessage `json:"port"`
		User     string          `json:"user"`
		Password string          `json:"password"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	port, err := parsePort(raw.Port)
	if err != nil {
		return err
	}

	*c = SMTPConfig{Host: raw.Host, Port: port, User: raw.User, Password: raw.Password}
	return nil
}

func parsePort(raw json.RawMessage) (int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, nil
	}
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid smtp port %q", s)
	}
	return port, nil
}

// EffectivePort returns Port, or DefaultSMTPPort when unset.
func (c SMTPConfig) EffectivePort() int {
	if c.Port == 0 {
		return DefaultSMTPPort
	}
	return c.Port
}

// ProcessRequest is the payload that starts a screening run
type ProcessRequest struct {
	SheetLink        string      `json:"sheet_link"`
	CompanyName      string      `json:"company_name"`
	Tagline          string      `json:"tagline"`
	RoleName         string      `json:"role_name"`
	RoleRequirements string      `json:"role_requirements"`
	UseOwnSMTP       bool        `json:"use_own_smtp"`
	SMTPConfig       *SMTPConfig `json:"smtp_config,omitempty"`
}

// ApplyDefaults fills omitted branding and role fields.
func (r *ProcessRequest) ApplyDefaults() {
	if strings.TrimSpace(r.CompanyName) == "" {
		r.CompanyName = DefaultCompanyName
	}
	if strings.TrimSpace(r.Tagline) == "" {
		r.Tagline = DefaultTagline
	}
	if strings.TrimSpace(r.RoleName) == "" {
		r.RoleName = DefaultRoleName
	}
	if strings.TrimSpace(r.RoleRequirements) == "" {
		r.RoleRequirements = DefaultRoleRequirements
	}
}

// ResultEntry is one Results Buffer item
type ResultEntry struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

// HistoryEntry is one row of GET /history
type HistoryEntry struct {
	ID      int64  `json:"id"`
	Company string `json:"company"`
	Role    string `json:"role"`
	Date    string `json:"date"`
	Count   int    `json:"count"`
}

// HistoryDateLayout formats batch creation times in history listings.
const HistoryDateLayout = "2006-01-02 15:04"

// NewHistoryEntry converts a batch summary into its listing form.
func NewHistoryEntry(s BatchSummary) HistoryEntry {
	return HistoryEntry{
		ID:      s.ID,
		Company: s.CompanyName,
		Role:    s.RoleName,
		Date:    s.CreatedAt.Format(HistoryDateLayout),
		Count:   s.ResultCount,
	}
}

// BatchDetail is the response of GET /history/{batch_id}
type BatchDetail struct {
	Company string        `json:"company"`
	Role    string        `json:"role"`
	Results []ResultEntry `json:"results"`
}

// Credentials is the register/login payload
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by a successful login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
