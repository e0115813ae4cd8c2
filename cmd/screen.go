package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/fmuoria/nexushire/internal/agent"
	"github.com/fmuoria/nexushire/internal/export"
	"github.com/fmuoria/nexushire/internal/ingestion"
	"github.com/fmuoria/nexushire/internal/metrics"
	"github.com/fmuoria/nexushire/internal/models"
	"github.com/fmuoria/nexushire/internal/progress"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var screenCmd = &cobra.Command{
	Use:   "screen [sheet-link]",
	Short: "Screen one sheet of applicants in the foreground",
	Args:  cobra.MaximumNArgs(1),
	RunE:  screen,
}

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().String("file", "", "read responses from a local .xlsx workbook instead of a Google Sheet")
	screenCmd.Flags().String("sheet", "", "worksheet of --file (default first sheet)")
	screenCmd.Flags().String("company", "", "company name shown in notices")
	screenCmd.Flags().String("tagline", "", "company tagline shown in notices")
	screenCmd.Flags().String("role", "", "role being screened")
	screenCmd.Flags().String("requirements", "", "role requirements given to the model")
	screenCmd.Flags().StringP("out", "o", "", "write an Excel report of the results to this path")
}

func screen(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	file, _ := flags.GetString("file")
	if len(args) == 0 && file == "" {
		return errors.New("a sheet link or --file is required")
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := interruptible(cmd.Context())
	defer stop()
	store := progress.NewMemoryStore(1)
	screening, cleanup, err := buildAgent(ctx, cfg, log, agent.NewEphemeralBatchStore(), store)
	if err != nil {
		return err
	}
	defer cleanup()

	job := agent.Job{Request: models.ProcessRequest{}}
	if len(args) == 1 {
		job.Request.SheetLink = args[0]
	}
	if file != "" {
		sheet, _ := flags.GetString("sheet")
		job.Source = &ingestion.ExcelSource{Path: file, Sheet: sheet}
		if job.Request.SheetLink == "" {
			job.Request.SheetLink = file
		}
	}
	job.Request.CompanyName, _ = flags.GetString("company")
	job.Request.Tagline, _ = flags.GetString("tagline")
	job.Request.RoleName, _ = flags.GetString("role")
	job.Request.RoleRequirements, _ = flags.GetString("requirements")

	if err := screening.Begin(ctx, &job); err != nil {
		return err
	}
	summary := screening.Run(ctx, job)

	logs, err := store.Logs(ctx, job.RunID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, line := range logs {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "\neligible: %d  not eligible: %d  errors: %d  skipped: %d\n",
		summary.Eligible, summary.NotEligible, summary.Errors, summary.Skipped)

	if path, _ := flags.GetString("out"); path != "" {
		results, err := store.Results(ctx, job.RunID)
		if err != nil {
			return err
		}
		report := export.Report{
			Company:      job.Request.CompanyName,
			Tagline:      job.Request.Tagline,
			Role:         job.Request.RoleName,
			Requirements: job.Request.RoleRequirements,
			CreatedAt:    time.Now(),
			Results:      results,
		}
		saved, err := export.SaveExcel(report, path)
		if err != nil {
			return err
		}
		log.Info("Report saved", zap.String("path", saved))
	}

	if summary.Outcome != metrics.OutcomeCompleted {
		return fmt.Errorf("screening run %s ended %s", summary.RunID, summary.Outcome)
	}
	return nil
}
