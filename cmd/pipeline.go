package cmd

import (
	"context"
	"fmt"

	"github.com/fmuoria/nexushire/internal/agent"
	"github.com/fmuoria/nexushire/internal/config"
	"github.com/fmuoria/nexushire/internal/eligibility"
	"github.com/fmuoria/nexushire/internal/events"
	"github.com/fmuoria/nexushire/internal/googleapi"
	"github.com/fmuoria/nexushire/internal/ingestion"
	"github.com/fmuoria/nexushire/internal/llm"
	"github.com/fmuoria/nexushire/internal/notify"
	"github.com/fmuoria/nexushire/internal/progress"
	"github.com/fmuoria/nexushire/internal/schedule"
	"go.uber.org/zap"
)

// buildAgent wires the screening pipeline. The returned cleanup releases the
// model client.
func buildAgent(ctx context.Context, cfg *config.Config, log *zap.Logger, batches agent.BatchStore, store progress.Store) (*agent.ScreeningAgent, func(), error) {
	generator, err := llm.New(ctx, cfg.LLM, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	cleanup := func() {
		if err := llm.Close(generator); err != nil {
			log.Warn("Failed to close llm client", zap.Error(err))
		}
	}

	services := &agent.GoogleServices{
		Credentials: googleapi.Credentials{
			CredentialsPath: cfg.Google.CredentialsPath,
			TokenPath:       cfg.Google.TokenPath,
		},
		SheetRange: cfg.Google.SheetRange,
		Calendar: schedule.Options{
			CalendarID: cfg.Google.CalendarID,
			Lead:       cfg.Google.InterviewLead,
			Length:     cfg.Google.InterviewLength,
			TimeZone:   cfg.Google.InterviewTimeZone,
		},
		Sender: cfg.Mail.Sender,
		Logger: log,
	}
	if cfg.Mail.Provider == config.MailSES {
		ses, err := notify.NewSESTransport(ctx, cfg.Mail.SESRegion, cfg.Mail.Sender)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		services.MailAPI = ses
	}

	deps := agent.Dependencies{
		Services:   services,
		Classifier: eligibility.NewClassifier(generator, log),
		Extractor:  ingestion.NewExtractor(log),
		WorkDir:    ingestion.NewWorkDir(cfg.WorkDir),
		Batches:    batches,
		Progress:   store,
		Logger:     log,
	}
	if cfg.Events.SNSTopicARN != "" {
		publisher, err := events.NewSNSPublisher(ctx, cfg.Events.Region, cfg.Events.SNSTopicARN)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.Events = publisher
	}

	return agent.NewScreeningAgent(deps), cleanup, nil
}
