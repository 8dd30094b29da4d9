package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/document"
	"github.com/spigell/interview-scorer/internal/engine"
	"github.com/spigell/interview-scorer/internal/interview"
	"github.com/spigell/interview-scorer/internal/report"
	"github.com/spigell/interview-scorer/internal/utils"
)

const (
	PromptAnswer = "Answer"
	PromptSkip   = "Skip question"
	PromptEnd    = "End interview"
)

var errExit = errors.New("exit requested")

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run an interactive interview and print the final report",
	Run: func(cmd *cobra.Command, _ []string) {
		runInterview(cmd)
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)

	interviewCmd.Flags().String("role", "", "job title of the position")
	interviewCmd.Flags().String("job-description", "", "job description text")
	interviewCmd.Flags().String("job-description-file", "", "job description document (pdf, docx or txt)")
	interviewCmd.Flags().String("resume", "", "candidate resume text")
	interviewCmd.Flags().String("resume-file", "", "candidate resume document (pdf, docx or txt)")
	interviewCmd.Flags().IntP("questions", "n", 0, "number of questions to generate (5-40)")
	interviewCmd.Flags().String("session", "", "continue an existing session by id")
	interviewCmd.Flags().StringP("format", "f", report.FormatText, "report format: text, json or yaml")

	viper.BindPFlag("interview.questions", interviewCmd.Flags().Lookup("questions"))
}

func runInterview(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d := setup(ctx, true)
	defer d.Close()

	l := d.logger
	flags := cmd.Flags()

	var (
		session *interview.Session
		err     error
	)
	if id, _ := flags.GetString("session"); id != "" {
		session, err = d.engine.Session(ctx, id)
		if err != nil {
			l.Fatal("loading the session", zap.Error(err))
		}
	} else {
		session, err = startSession(ctx, cmd, d)
		if err != nil {
			l.Fatal("setting up the interview", zap.Error(err))
		}
	}

	fmt.Printf("\nInterview %s for %s: %d questions\n", session.ID, session.Role, len(session.Questions))

	if session.Status != interview.StatusCompleted {
		if err := conduct(ctx, d.engine, session.ID); err != nil {
			if errors.Is(err, errExit) {
				l.Info("interview paused", zap.String("session_id", session.ID))
				return
			}
			l.Fatal("running the interview", zap.Error(err))
		}
	}

	session, err = d.engine.Session(ctx, session.ID)
	if err != nil {
		l.Fatal("loading the report", zap.Error(err))
	}

	format, _ := flags.GetString("format")
	if err := report.Write(os.Stdout, format, session, false); err != nil {
		l.Fatal("printing the report", zap.Error(err))
	}
}

func startSession(ctx context.Context, cmd *cobra.Command, d *deps) (*interview.Session, error) {
	flags := cmd.Flags()

	role, _ := flags.GetString("role")
	role, err := orPrompt(role, "Job title")
	if err != nil {
		return nil, err
	}

	jdText, _ := flags.GetString("job-description")
	jdFile, _ := flags.GetString("job-description-file")
	jd, err := resolveDocument(d.logger, jdText, jdFile, "Job description")
	if err != nil {
		return nil, err
	}

	resumeText, _ := flags.GetString("resume")
	resumeFile, _ := flags.GetString("resume-file")
	resume, err := resolveDocument(d.logger, resumeText, resumeFile, "Candidate resume")
	if err != nil {
		return nil, err
	}

	questions := viper.GetInt("interview.questions")
	fmt.Printf("Generating %d interview questions for %s...\n", questions, role)

	return d.engine.Start(ctx, engine.Setup{
		Role:           role,
		JobDescription: jd,
		Resume:         resume,
		Questions:      questions,
	})
}

// conduct asks the remaining questions until every one is answered or the
// interviewer ends the interview.
func conduct(ctx context.Context, svc *engine.Service, id string) error {
	started := time.Now()

	for {
		q, ok, err := svc.CurrentQuestion(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("\nAll questions answered, generating the report...")
			_, err := svc.Complete(ctx, id)
			return err
		}

		answered, total, err := svc.Progress(ctx, id)
		if err != nil {
			return err
		}

		shown := time.Now()
		fmt.Printf("\nQuestion %d of %d [%s]\n%s\n", answered+1, total, q.Category.Label(), q.Text)
		if q.Context != "" {
			fmt.Printf("Why this question: %s\n", q.Context)
		}

		action := promptui.Select{
			Label: fmt.Sprintf("Elapsed %s", utils.FormatElapsed(time.Since(started))),
			Items: []string{PromptAnswer, PromptSkip, PromptEnd},
		}
		_, choice, err := action.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) {
				return errExit
			}
			return err
		}

		switch choice {
		case PromptAnswer:
			text, err := promptAnswer()
			if err != nil {
				if errors.Is(err, promptui.ErrInterrupt) {
					return errExit
				}
				return err
			}
			answer, err := svc.Submit(ctx, id, q.ID, text, time.Since(shown))
			if err != nil {
				return err
			}
			fmt.Printf("Score %.1f/10 after %s. %s\n",
				answer.Evaluation.Score, utils.FormatElapsed(answer.ResponseTime), answer.Evaluation.Feedback)
		case PromptSkip:
			if _, err := svc.Skip(ctx, id, q.ID); err != nil {
				return err
			}
			fmt.Println("Question skipped.")
		case PromptEnd:
			fmt.Println("Ending the interview, generating the report...")
			if _, err := svc.Complete(ctx, id); err != nil {
				if errors.Is(err, interview.ErrInvalidState) {
					fmt.Println("Please answer at least one question before ending the interview.")
					continue
				}
				return err
			}
			return nil
		}
	}
}

func promptAnswer() (string, error) {
	p := promptui.Prompt{
		Label: "Your answer",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return interview.ErrEmptyAnswer
			}
			return nil
		},
	}
	return p.Run()
}

func orPrompt(value, label string) (string, error) {
	if strings.TrimSpace(value) != "" {
		return value, nil
	}
	p := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", strings.ToLower(label))
			}
			return nil
		},
	}
	return p.Run()
}

// resolveDocument prefers a document file over inline text and prompts when neither is set.
func resolveDocument(l *zap.Logger, text, file, label string) (string, error) {
	if file != "" {
		extracted, err := document.ExtractOrPlaceholder(file)
		if err != nil {
			l.Warn("could not extract document text, using a placeholder",
				zap.String("file", file),
				zap.Error(err),
			)
		}
		return extracted, nil
	}
	return orPrompt(text, label)
}
