package agent

import (
	"context"
	"time"

	"github.com/fmuoria/nexushire/internal/googleapi"
	"github.com/fmuoria/nexushire/internal/ingestion"
	"github.com/fmuoria/nexushire/internal/models"
	"github.com/fmuoria/nexushire/internal/notify"
	"github.com/fmuoria/nexushire/internal/schedule"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Services are the Google-backed collaborators of one run.
type Services struct {
	OpenSheet func(ctx context.Context, sheetLink string) (ingestion.RowSource, error)
	Fetcher   ingestion.Fetcher
	Scheduler Scheduler
	Notifier  Notifier
}

// ServiceFactory builds the Services of a run. Failure here aborts the run
// before any sheet is read.
type ServiceFactory interface {
	Services(ctx context.Context) (*Services, error)
}

// GoogleServices builds run services from Google Workspace credentials.
type GoogleServices struct {
	Credentials googleapi.Credentials
	SheetRange  string
	Calendar    schedule.Options
	// MailAPI delivers notices when custom SMTP is not requested. Gmail with
	// the run's credentials is used when nil.
	MailAPI notify.MailAPI
	Sender  string
	Logger  *zap.Logger
	// ClientOptions are passed to every Google API client.
	ClientOptions []option.ClientOption
}

// Services implements ServiceFactory.
func (g *GoogleServices) Services(ctx context.Context) (*Services, error) {
	client, err := g.Credentials.HTTPClient(ctx, googleapi.Scopes...)
	if err != nil {
		return nil, err
	}

	fetcher, err := ingestion.NewDriveFetcher(ctx, client, g.ClientOptions...)
	if err != nil {
		return nil, err
	}

	scheduler, err := schedule.NewCalendarScheduler(ctx, client, g.Calendar, g.ClientOptions...)
	if err != nil {
		return nil, err
	}

	mailAPI := g.MailAPI
	if mailAPI == nil {
		gmail, err := notify.NewGmailTransport(ctx, client, g.ClientOptions...)
		if err != nil {
			return nil, err
		}
		mailAPI = gmail
	}

	openSheet := func(ctx context.Context, link string) (ingestion.RowSource, error) {
		id, err := ingestion.ParseSheetID(link)
		if err != nil {
			return nil, err
		}
		return ingestion.NewSheetsSource(ctx, client, id, g.SheetRange, g.ClientOptions...)
	}

	return &Services{
		OpenSheet: openSheet,
		Fetcher:   fetcher,
		Scheduler: scheduler,
		Notifier:  notify.NewNotifier(mailAPI, g.Sender, g.Logger),
	}, nil
}

// memoryBatches assigns ids without persisting anything. It backs terminal
// runs that are not tied to an account.
type memoryBatches struct {
	nextBatch  int64
	nextResult int64
}

// NewEphemeralBatchStore returns a BatchStore that keeps nothing.
func NewEphemeralBatchStore() BatchStore {
	return &memoryBatches{}
}

func (m *memoryBatches) CreateBatch(_ context.Context, batch *models.ScreeningBatch) error {
	m.nextBatch++
	batch.ID = m.nextBatch
	batch.CreatedAt = time.Now()
	return nil
}

func (m *memoryBatches) AddResult(_ context.Context, result *models.CandidateResult) error {
	m.nextResult++
	result.ID = m.nextResult
	result.CreatedAt = time.Now()
	return nil
}
