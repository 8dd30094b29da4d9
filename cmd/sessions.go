package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/interview-scorer/internal/interview"
	"github.com/spigell/interview-scorer/internal/report"
	"github.com/spigell/interview-scorer/internal/storage"
	"github.com/spigell/interview-scorer/internal/utils"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List interviews",
	Run: func(cmd *cobra.Command, _ []string) {
		runSessions(cmd)
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)

	sessionsCmd.Flags().StringP("status", "s", "", "filter by status: created, in_progress or completed")
	sessionsCmd.Flags().StringP("format", "f", report.FormatText, "output format: text, json or yaml")
}

func runSessions(cmd *cobra.Command) {
	ctx := context.Background()

	d := setup(ctx, false)
	defer d.Close()

	status, _ := cmd.Flags().GetString("status")
	format, _ := cmd.Flags().GetString("format")

	summaries, err := d.engine.List(ctx, interview.Status(strings.TrimSpace(status)))
	if err != nil {
		d.logger.Fatal("listing sessions", zap.Error(err))
	}

	if err := writeSummaries(os.Stdout, format, summaries); err != nil {
		d.logger.Fatal("printing sessions", zap.Error(err))
	}
}

func writeSummaries(w io.Writer, format string, summaries []storage.Summary) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", report.FormatText:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tROLE\tSTATUS\tPROGRESS\tCREATED\tRECOMMENDATION\tSCORE")
		for _, s := range summaries {
			score := "-"
			if s.Recommendation != "" {
				score = fmt.Sprintf("%.1f", s.OverallScore)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\t%s\n",
				s.ID, utils.TruncateForLog(s.Role, 40), s.Status, s.Answered, s.Total,
				s.CreatedAt.Format("2006-01-02 15:04"), orDash(string(s.Recommendation)), score)
		}
		return tw.Flush()
	case report.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	case report.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summaries); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
