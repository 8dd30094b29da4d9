package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/interview-scorer/internal/engine"
	"github.com/spigell/interview-scorer/internal/interview"
	"github.com/spigell/interview-scorer/internal/report"
	"github.com/spigell/interview-scorer/internal/storage"
)

const defaultConcurrency = 4

var reportCmd = &cobra.Command{
	Use:   "report [session-id]",
	Short: "Show or regenerate the report of a completed interview",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runReport(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().BoolP("regenerate", "r", false, "request a fresh narrative assessment")
	reportCmd.Flags().Bool("all", false, "regenerate the reports of every completed interview")
	reportCmd.Flags().Int("concurrency", defaultConcurrency, "parallel regenerations with --all")
	reportCmd.Flags().StringP("format", "f", report.FormatText, "report format: text, json or yaml")
	reportCmd.Flags().BoolP("transcript", "t", false, "include questions and answers")
}

func runReport(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	flags := cmd.Flags()

	regenerate, _ := flags.GetBool("regenerate")
	all, _ := flags.GetBool("all")
	format, _ := flags.GetString("format")
	transcript, _ := flags.GetBool("transcript")

	d := setup(ctx, regenerate || all)
	defer d.Close()
	l := d.logger

	if all {
		concurrency, _ := flags.GetInt("concurrency")
		summaries, err := regenerateAll(ctx, d.engine, concurrency, l)
		if err != nil {
			l.Fatal("regenerating reports", zap.Error(err))
		}
		if err := writeSummaries(os.Stdout, format, summaries); err != nil {
			l.Fatal("printing sessions", zap.Error(err))
		}
		return
	}

	var id string
	if len(args) > 0 {
		id = args[0]
	} else {
		picked, err := pickSession(ctx, d.engine)
		if err != nil {
			l.Fatal("choosing a session", zap.Error(err))
		}
		id = picked
	}

	var err error
	if regenerate {
		_, err = d.engine.Regenerate(ctx, id)
	} else {
		_, err = d.engine.Report(ctx, id)
	}
	if err != nil {
		l.Fatal("getting the report", zap.String("session_id", id), zap.Error(err))
	}

	session, err := d.engine.Session(ctx, id)
	if err != nil {
		l.Fatal("loading the session", zap.Error(err))
	}

	if err := report.Write(os.Stdout, format, session, transcript); err != nil {
		l.Fatal("printing the report", zap.Error(err))
	}
}

// regenerateAll rebuilds every completed session's report with bounded parallelism.
// Failures are logged per session and do not stop the others.
func regenerateAll(ctx context.Context, svc *engine.Service, concurrency int, l *zap.Logger) ([]storage.Summary, error) {
	completed, err := svc.List(ctx, interview.StatusCompleted)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var (
		mu     sync.Mutex
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range completed {
		summary := &completed[i]
		g.Go(func() error {
			r, err := svc.Regenerate(gctx, summary.ID)
			if err != nil {
				l.Error("regenerating report failed", zap.String("session_id", summary.ID), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			summary.Recommendation = r.Recommendation
			summary.OverallScore = r.OverallScore
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.Info("reports regenerated", zap.Int("sessions", len(completed)), zap.Int("failed", failed))
	return completed, nil
}

func pickSession(ctx context.Context, svc *engine.Service) (string, error) {
	completed, err := svc.List(ctx, interview.StatusCompleted)
	if err != nil {
		return "", err
	}
	if len(completed) == 0 {
		return "", fmt.Errorf("there are no completed interviews")
	}

	items := make([]string, 0, len(completed))
	for _, s := range completed {
		items = append(items, fmt.Sprintf("%s | %s | %s", s.CreatedAt.Format("2006-01-02 15:04"), s.Role, s.Recommendation))
	}

	p := promptui.Select{
		Label: "Choose an interview and press ENTER",
		Items: items,
	}
	i, _, err := p.Run()
	if err != nil {
		return "", err
	}
	return completed[i].ID, nil
}
