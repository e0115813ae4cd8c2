package eligibility

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/fmuoria/nexushire/internal/logger"
	"github.com/fmuoria/nexushire/internal/models"
	"go.uber.org/zap"
)

// MaxResumeRunes caps the resume text sent to the model.
const MaxResumeRunes = 20000

const meetMarker = "Meet:"

//go:embed prompt.tmpl
var promptText string

var promptTemplate = template.Must(template.New("prompt").Parse(promptText))

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
}

// Classifier asks a language model whether a resume meets role requirements.
type Classifier struct {
	generator contentGenerator
	logger    *zap.Logger
}

// NewClassifier creates a classifier over the given generator.
func NewClassifier(generator contentGenerator, log *zap.Logger) *Classifier {
	return &Classifier{generator: generator, logger: logger.WithFields(log)}
}

// Classify returns the model's verdict, trimmed. Use IsEligible to interpret it.
func (c *Classifier) Classify(ctx context.Context, resumeText, role, requirements string) (string, error) {
	if strings.TrimSpace(resumeText) == "" {
		return "", errors.New("resume text is empty")
	}

	prompt, err := BuildPrompt(resumeText, role, requirements)
	if err != nil {
		return "", err
	}

	decision, err := c.generator.GenerateContent(ctx, SystemInstruction(role), prompt)
	if err != nil {
		return "", fmt.Errorf("failed to get LLM response: %w", err)
	}
	decision = strings.TrimSpace(decision)

	c.logger.Debug("eligibility verdict",
		zap.String("role", role),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("verdict", logger.Truncate(decision, 40)),
	)
	return decision, nil
}

// SystemInstruction frames the model as a recruiter for role.
func SystemInstruction(role string) string {
	return fmt.Sprintf("You are a strict technical recruiter evaluating for a %s role.", role)
}

// BuildPrompt renders the screening prompt.
func BuildPrompt(resumeText, role, requirements string) (string, error) {
	runes := []rune(resumeText)
	if len(runes) > MaxResumeRunes {
		resumeText = string(runes[:MaxResumeRunes])
	}

	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, struct {
		Role, Requirements, Resume string
	}{role, requirements, resumeText})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// IsEligible reports whether a verdict starts with ELIGIBLE. Substring
// matching would accept "NOT ELIGIBLE".
func IsEligible(decision string) bool {
	return strings.HasPrefix(decision, models.StatusEligible)
}

// Status maps a verdict to the persisted candidate status.
func Status(decision string) string {
	if IsEligible(decision) {
		return models.StatusEligible
	}
	return models.StatusNotEligible
}

// EligibleDecision is the decision string handed to the notifier for an
// eligible candidate with a scheduled meeting.
func EligibleDecision(meetLink string) string {
	return fmt.Sprintf("%s\n%s %s", models.StatusEligible, meetMarker, meetLink)
}

// MeetLink returns the text after the last "Meet:" marker, or "#".
func MeetLink(decision string) string {
	idx := strings.LastIndex(decision, meetMarker)
	if idx < 0 {
		return "#"
	}
	link := strings.TrimSpace(decision[idx+len(meetMarker):])
	if link == "" {
		return "#"
	}
	return link
}
