package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/abdul-hamid-achik/kernspec/packages/core/env"
	"github.com/abdul-hamid-achik/kernspec/packages/gotest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var testCmd = &cobra.Command{
	Use:   "test [-- go test args]",
	Short: "Run go test and render its output",
	Long: `Run "go test -json" with the given arguments and render the events live.
Arguments after "--" are passed to go test unchanged.

Examples:
  kernspec test ./...
  kernspec test -- -run TestAuth -count=1 ./auth/...
  kernspec test --env-file .env.test --format progress ./...`,
	RunE: withRuntimeErrors(testCommand),
}

var (
	testFlags   sessionFlags
	envFileFlag string
	goBinFlag   string
)

func init() {
	addSessionFlags(testCmd, &testFlags)
	testCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("KERNSPEC_ENV_FILE", ""), "Load variables for go test from a .env file (env: KERNSPEC_ENV_FILE)")
	testCmd.Flags().StringVar(&goBinFlag, "go", getEnvString("KERNSPEC_GO", "go"), "Go binary to run (env: KERNSPEC_GO)")
}

// goTestArgs prepends -json unless the caller already asked for it
func goTestArgs(args []string) []string {
	out := []string{"test"}
	hasJSON := false
	for _, a := range args {
		if a == "-json" || a == "--json" {
			hasJSON = true
		}
	}
	if !hasJSON {
		out = append(out, "-json")
	}
	return append(out, args...)
}

func testCommand(cmd *cobra.Command, args []string) error {
	fileConfig, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := testFlags.apply(fileConfig)

	childEnv := os.Environ()
	if envFileFlag != "" {
		vars, err := env.LoadDotEnv(envFileFlag)
		if err != nil {
			return configError(err)
		}
		childEnv = env.Merge(childEnv, vars)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(ctx, cfg, newHost(cfg, childEnv), cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	defer s.Close()

	goArgs := goTestArgs(args)
	child := exec.CommandContext(ctx, goBinFlag, goArgs...)
	child.Env = childEnv
	child.Stderr = cmd.ErrOrStderr()
	stdout, err := child.StdoutPipe()
	if err != nil {
		return err
	}

	logger.Debug("starting go test", zap.String("go", goBinFlag), zap.Strings("args", goArgs))
	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", goBinFlag, err)
	}

	t := gotest.NewTranslator(s.reporter, gotest.WithLogger(logger))
	translateErr := gotest.Translate(ctx, stdout, t)
	if translateErr != nil {
		// unblock the child before waiting on it
		_ = child.Process.Kill()
	}
	waitErr := child.Wait()

	if translateErr != nil && !errors.Is(translateErr, context.Canceled) {
		return fmt.Errorf("reading events: %w", translateErr)
	}
	if err := t.Close(); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return fmt.Errorf("go test: %w", waitErr)
	}
	// go test exits non-zero for failures the stream already reported
	if exitErr != nil && !s.reporter.Failed() && ctx.Err() == nil {
		return &ExitError{Code: ExitTestFailure, Err: fmt.Errorf("go test exited with status %d", exitErr.ExitCode())}
	}
	return s.result()
}
