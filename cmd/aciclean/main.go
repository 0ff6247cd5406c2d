// Command aciclean purges learned endpoints from an ACI endpoint group.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1 // login, query or delete failure
	exitUsage   = 2 // bad flags or configuration
)

// ansibleModuleName is the argv[0] under which the binary behaves as an
// Ansible module, e.g. when installed as library/aci_endpoint_purge.
const ansibleModuleName = "aci_endpoint_purge"

func main() {
	a := &app{
		stdin:          os.Stdin,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		passwordPrompt: terminalPrompt(os.Stderr),
	}
	os.Exit(a.run(os.Args))
}

// app holds the process-wide state shared by subcommands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// passwordPrompt asks for the controller password; nil when stdin
	// is not a terminal.
	passwordPrompt func(prompt string) (string, error)

	configPath string
	envFile    string
	v          *viper.Viper
	logger     *zap.Logger
}

// exitError carries the process exit code through cobra.
type exitError struct {
	code   int
	err    error
	silent bool // already reported on stdout
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error   { return &exitError{code: exitUsage, err: err} }
func failureError(err error) error { return &exitError{code: exitFailure, err: err} }

// run executes the CLI with argv and returns the exit code.
func (a *app) run(argv []string) int {
	args := argv[1:]
	if filepath.Base(argv[0]) == ansibleModuleName {
		args = append([]string{"ansible"}, args...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if !ee.silent && ee.err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	// Anything else comes from cobra's flag and argument parsing.
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	return exitUsage
}

func terminalPrompt(w io.Writer) func(string) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // G115: file descriptors fit in int
	if !term.IsTerminal(fd) {
		return nil
	}
	return func(prompt string) (string, error) {
		fmt.Fprint(w, prompt)
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(w)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}
}
