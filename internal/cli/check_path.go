package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	checkPrefixes []string
	checkBaseDir  string
)

var checkPathCmd = &cobra.Command{
	Use:   "check-path URI",
	Short: "Check whether a request URI would be served",
	Long: `Run the request validator offline against the configured roots.
Prints the resolved file and whether tailing was requested, or the rejection
a client would receive. Exits non-zero on rejection.`,
	Example: `  logstream check-path '/syslog?tail=1' --base-dir /var/log --prefix /var/log`,
	Args:    cobra.ExactArgs(1),
	RunE:    runCheckPath,
}

func init() {
	checkPathCmd.Flags().StringArrayVar(&checkPrefixes, "prefix", nil, "allowed log directory (repeatable)")
	checkPathCmd.Flags().StringVar(&checkBaseDir, "base-dir", "", "directory request paths are resolved against (default from config)")
	rootCmd.AddCommand(checkPathCmd)
}

func runCheckPath(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.AddRoots(checkPrefixes...)
	if checkBaseDir != "" {
		cfg.Tail.BaseDir = checkBaseDir
	}

	roots, err := cfg.Roots()
	if err != nil {
		return err
	}

	req, err := roots.Validate(args[0])
	if err != nil {
		return fmt.Errorf("rejected: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Path: %s\n", req.Path)
	fmt.Fprintf(out, "Tail: %t\n", req.Tail)
	return nil
}
