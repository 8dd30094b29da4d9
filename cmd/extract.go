package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/document"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the text extracted from a resume or job description",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		l := newLogger()
		defer l.Sync()

		text, err := document.Extract(args[0])
		if err != nil {
			l.Fatal("extracting text", zap.String("file", args[0]), zap.Error(err))
		}
		fmt.Println(text)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
