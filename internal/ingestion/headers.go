package ingestion

import (
	"errors"
	"fmt"
	"strings"
)

// Column roles resolved from the header row.
const (
	RoleEmail  = "email"
	RoleResume = "resume"
)

// ErrColumnsNotFound is returned when a required column has no matching header.
var ErrColumnsNotFound = errors.New("columns not found")

// ColumnMatcher assigns a role to the first header its predicate accepts.
// Headers are passed lower-cased and trimmed.
type ColumnMatcher struct {
	Role  string
	Match func(header string) bool
}

// ContainsAny builds a predicate matching headers containing any of the substrings.
func ContainsAny(substrings ...string) func(string) bool {
	return func(header string) bool {
		for _, s := range substrings {
			if strings.Contains(header, s) {
				return true
			}
		}
		return false
	}
}

// DefaultMatchers returns the email and resume-link matchers used for form
// response sheets.
func DefaultMatchers() []ColumnMatcher {
	return []ColumnMatcher{
		{Role: RoleEmail, Match: ContainsAny("email")},
		{Role: RoleResume, Match: ContainsAny("resume", "upload", "cv")},
	}
}

// Columns holds the resolved indices of the candidate columns.
type Columns struct {
	Email  int
	Resume int
}

// MinCells is the number of cells a row needs to cover both columns.
func (c Columns) MinCells() int {
	return max(c.Email, c.Resume) + 1
}

// ResolveColumnRoles maps every matcher role to the index of the first header
// it matches. Roles without a match are absent from the result.
func ResolveColumnRoles(headers []string, matchers []ColumnMatcher) map[string]int {
	found := make(map[string]int, len(matchers))
	for i, h := range headers {
		normalized := strings.ToLower(strings.TrimSpace(h))
		for _, m := range matchers {
			if _, ok := found[m.Role]; ok {
				continue
			}
			if m.Match(normalized) {
				found[m.Role] = i
			}
		}
	}
	return found
}

// ResolveColumns locates the email and resume-link columns.
func ResolveColumns(headers []string, matchers []ColumnMatcher) (Columns, error) {
	if len(matchers) == 0 {
		matchers = DefaultMatchers()
	}

	found := ResolveColumnRoles(headers, matchers)

	email, okEmail := found[RoleEmail]
	resume, okResume := found[RoleResume]
	if !okEmail || !okResume {
		return Columns{}, fmt.Errorf("%w: headers %v", ErrColumnsNotFound, headers)
	}

	return Columns{Email: email, Resume: resume}, nil
}
