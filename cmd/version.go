package cmd

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/spigell/interview-scorer/cmd.version=... -X ...cmd.commit=...".
var (
	version = ""
	commit  = ""
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeVersion(cmd.OutOrStdout(), buildVersion(), versionShort)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}

type buildInfo struct {
	Version string
	Commit  string
	Go      string
}

// buildVersion prefers linker supplied values and falls back to the module build info,
// which is populated for go install builds.
func buildVersion() buildInfo {
	info := buildInfo{Version: version, Commit: commit, Go: runtime.Version()}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && info.Commit == "" {
				info.Commit = s.Value
			}
		}
	}

	if info.Version == "" {
		info.Version = "unknown"
	}
	if len(info.Commit) > 12 {
		info.Commit = info.Commit[:12]
	}
	return info
}

func writeVersion(w io.Writer, info buildInfo, short bool) error {
	if short {
		_, err := fmt.Fprintln(w, info.Version)
		return err
	}

	rev := info.Commit
	if rev == "" {
		rev = "none"
	}
	_, err := fmt.Fprintf(w, "%s %s (commit %s, %s)\n", app, info.Version, rev, info.Go)
	return err
}
