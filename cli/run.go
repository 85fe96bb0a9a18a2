package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/riadafridishibly/parfind/action"
	"github.com/riadafridishibly/parfind/config"
	"github.com/riadafridishibly/parfind/filter"
	"github.com/riadafridishibly/parfind/logger"
	"github.com/riadafridishibly/parfind/output"
	"github.com/riadafridishibly/parfind/report"
	"github.com/riadafridishibly/parfind/scanner"
)

// Env is the process environment a run writes to.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Exit terminates the process after a fatal error.
	Exit func(code int)
}

func DefaultEnv() Env {
	return Env{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Exit:   os.Exit,
	}
}

// Run scans according to cfg, which must be valid. It returns
// scanner.ErrRootAccess when a path argument could not be accessed.
func Run(ctx context.Context, cfg config.Config, env Env) error {
	mode, err := logger.ParseColorMode(cfg.Color)
	if err != nil {
		return err
	}
	log := logger.New(env.Stderr, cfg.Verbose, mode)

	fc, err := cfg.FilterConfig(time.Now())
	if err != nil {
		return err
	}
	pipeline, err := filter.New(fc, log)
	if err != nil {
		return err
	}

	stats := &scanner.Stats{}
	roots := cfg.Roots()
	statAll := cfg.StatAll()

	var (
		actions []scanner.Action
		printer *output.Printer
	)

	if !cfg.NoPrint {
		format := output.FormatText
		switch {
		case cfg.JSON:
			format = output.FormatJSON
		case cfg.Print0:
			format = output.FormatNull
		}
		printer = output.NewPrinter(env.Stdout, format, statAll)
		actions = append(actions, printer)
	}

	if len(cfg.Exec) > 0 {
		x := &action.Executor{
			Args:   cfg.Exec,
			Stdin:  env.Stdin,
			Stdout: env.Stdout,
			Stderr: env.Stderr,
		}
		if printer != nil {
			x.Flush = printer.Flush
		}
		actions = append(actions, x)
	}

	if cfg.CopyTo != "" {
		actions = append(actions, action.NewCopier(roots[0], cfg.CopyTo, action.CopyOptions{
			UpdateTimes:  !cfg.NoTimeUpd,
			IgnoreErrors: cfg.NoCopyErr,
		}, stats, log))
	}

	if cfg.Unlink {
		actions = append(actions, &action.Unlinker{IgnoreErrors: cfg.NoDelErr, Log: log})
	}

	opts := scanner.Options{
		Workers:             cfg.Threads,
		DepthThreshold:      cfg.DepthThreshold(),
		MaxDepth:            uint16(cfg.MaxDepth),
		StatAll:             statAll,
		SameFilesystem:      cfg.Xdev,
		QuitAfterFirstMatch: cfg.Quit,
		Actions:             actions,
		Stats:               stats,
		Logger:              log,
		Fatal: func(err error) {
			if printer != nil {
				_ = printer.Flush()
			}
			log.Errorf("Aborting: %v", err)
			env.Exit(1)
		},
	}
	if pipeline.Active() {
		opts.Filter = pipeline
	}
	if cfg.ACLCheck {
		opts.Inspect = (&action.ACLChecker{Stats: stats, Log: log}).Inspect
	}

	log.Debugf("Scanning %d path(s) with %d thread(s)", len(roots), cfg.Threads)

	s := scanner.NewScanner(opts)
	runErr := s.Run(ctx, roots)

	if printer != nil {
		if err := printer.Flush(); err != nil {
			log.Errorf("Failed to flush output: %v", err)
		}
	}

	if !cfg.NoSummary {
		sum := report.Summary{
			Stats:    stats.Snapshot(),
			Elapsed:  s.ElapsedTime(),
			ACLCheck: cfg.ACLCheck,
		}
		if cfg.Verbose {
			sum.Config = cfg.String()
		}
		if err := report.Write(env.Stderr, sum, logger.UseColor(env.Stderr, mode)); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	return runErr
}
