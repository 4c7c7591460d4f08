// Command vv is a CLI client for the video-rating platform.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/and161185/vidvote/internal/config"
	"github.com/and161185/vidvote/internal/errs"
	"github.com/and161185/vidvote/internal/transport"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const usageText = `vv CLI
Usage:
  vv [-api URL] [-store file|sqlite|memory] [-config file] [-v] <cmd> [args]

Commands:
  version
  health
  register   -first <name> -last <name> -email <email> -password <pw> [-password2 <pw>] [-city <c> -country <c>]
  login      -email <email> -password <pw>          (saves session)
  logout
  whoami
  status                                             (session and token expiry)
  statuses                                           (known video statuses)
  videos     [-page N -size N] [-refresh]
  upload     -title <title> -file <video.mp4> [-status <s>]
  video      -id <id>
  refresh
  publish    -id <id>
  rm         -id <id>
  public
  vote       -id <id>
  rankings   [-page N -size N -city <c> -mode server|client]
  city       -city <c> -country <c>
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses global flags, wires the client and dispatches one subcommand.
// It returns the process exit code: 0 ok, 1 failure, 2 usage error.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usageText) }
	apiURL := fs.String("api", "", "backend base URL (overrides api_base_url)")
	store := fs.String("store", "", "session store: file, sqlite or memory")
	cfgFile := fs.String("config", "", "config file")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}
	name, rest := fs.Arg(0), fs.Args()[1:]

	if name == "version" {
		fmt.Fprintf(stdout, "vv %s (%s)\n", version, buildDate)
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		return fail(stderr, err)
	}
	if *apiURL != "" {
		cfg.APIBaseURL = *apiURL
	}
	if *store != "" {
		cfg.Store = *store
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fail(stderr, err)
	}

	log, err := cfg.Logger()
	if err != nil {
		return fail(stderr, err)
	}
	log.Debug("starting", zap.String("version", version), zap.String("cmd", name), zap.String("api", cfg.APIBaseURL))

	a, err := newApp(ctx, cfg, log, stdout)
	if err != nil {
		return fail(stderr, err)
	}
	defer func() { _ = a.Close() }()

	// uploads are bounded by the size cap rather than the request timeout
	cctx, cancel := ctx, context.CancelFunc(func() {})
	if name != "upload" {
		cctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
	}
	defer cancel()

	if err := cmd(cctx, a, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) || errors.Is(err, errUsage) {
			return 2
		}
		return fail(stderr, err)
	}
	return 0
}

// fail prints err for a human and returns exit code 1.
func fail(w io.Writer, err error) int {
	fmt.Fprintln(w, describe(err))
	return 1
}

// describe turns well-known errors into actionable messages.
func describe(err error) string {
	var he *transport.HTTPError
	switch {
	case errors.Is(err, errs.ErrUnauthenticated):
		return "login required (run: vv login)"
	case errors.Is(err, errs.ErrUnauthorized):
		return "unauthorized: " + err.Error()
	case errors.Is(err, errs.ErrConflict):
		return "already done: " + err.Error()
	case errors.As(err, &he):
		return fmt.Sprintf("server error (HTTP %d): %s", he.Status, he.Error())
	}
	return err.Error()
}
