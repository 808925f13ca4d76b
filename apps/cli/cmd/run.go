package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/abdul-hamid-achik/kernspec/packages/gotest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run [file|-]",
	Short: "Render a go test -json stream",
	Long: `Render test2json events read from a file, or from stdin when the file is
omitted or "-".

Examples:
  go test -json ./... | kernspec run
  kernspec run results.jsonl --format release --format junit=report.xml
  kernspec run results.jsonl --follow
  kernspec run results.jsonl --release 6.8.0-generic --history
  kernspec run results.jsonl --format html=report.html --metrics-file metrics.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: withRuntimeErrors(runCommand),
}

var (
	runFlags   sessionFlags
	followFlag bool
)

func init() {
	addSessionFlags(runCmd, &runFlags)
	runCmd.Flags().BoolVar(&followFlag, "follow", getEnvBool("KERNSPEC_FOLLOW", false), "Keep reading the file as it grows until interrupted (env: KERNSPEC_FOLLOW)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func runCommand(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	if followFlag && path == "-" {
		return usageError(errors.New("--follow needs a file argument"))
	}

	fileConfig, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := runFlags.apply(fileConfig)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(ctx, cfg, newHost(cfg, nil), cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	defer s.Close()

	t := gotest.NewTranslator(s.reporter, gotest.WithLogger(logger))

	switch {
	case followFlag:
		logger.Debug("following event file", zap.String("path", path))
		err = gotest.Follow(ctx, path, t.Handle, logger)
	case path == "-":
		err = gotest.Translate(ctx, cmd.InOrStdin(), t)
	default:
		err = translateFile(ctx, path, t)
	}
	// An interrupted run still gets its summary
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("reading events: %w", err)
	}

	if err := t.Close(); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}
	return s.result()
}

func translateFile(ctx context.Context, path string, t *gotest.Translator) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gotest.Translate(ctx, f, t)
}
