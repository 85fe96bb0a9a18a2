package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/riadafridishibly/parfind/logger"
	"github.com/riadafridishibly/parfind/report"
	"github.com/riadafridishibly/parfind/scanner"
)

func newBenchCommand(env Env) *cobra.Command {
	var threads int

	cmd := &cobra.Command{
		Use:   "bench PATH",
		Short: "Compare the hybrid scanner with fastwalk on one tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if threads < 1 {
				return fmt.Errorf("threads must be at least 1, got %d", threads)
			}
			results, err := Bench(cmd.Context(), args[0], threads, env)
			if err != nil {
				return err
			}
			report.WriteBench(env.Stdout, results)
			return nil
		},
	}
	cmd.Flags().IntVarP(&threads, "threads", "t", 16, "number of workers for both walkers")

	return cmd
}

// Bench walks root once with the hybrid scanner and once with fastwalk.
// Neither walker prints entries or follows symlinks.
func Bench(ctx context.Context, root string, threads int, env Env) ([]report.BenchResult, error) {
	log := logger.New(env.Stderr, false, logger.ColorAuto)

	stats := &scanner.Stats{}
	s := scanner.NewScanner(scanner.Options{
		Workers:  threads,
		MaxDepth: scanner.UnlimitedDepth,
		Stats:    stats,
		Logger:   log,
		Fatal: func(err error) {
			log.Errorf("Aborting: %v", err)
			env.Exit(1)
		},
	})
	if err := s.Run(ctx, []string{root}); err != nil {
		return nil, err
	}
	st := stats.Snapshot()
	hybrid := report.BenchResult{
		Name:    "hybrid",
		Workers: threads,
		Dirs:    st.DirsFound,
		Files:   st.FilesFound,
		Errors:  st.Errors,
		Elapsed: s.ElapsedTime(),
	}

	start := time.Now()
	ref, err := scanner.ReferenceWalk(root, threads, nil)
	if err != nil {
		return nil, fmt.Errorf("fastwalk %s: %w", root, err)
	}
	fast := report.BenchResult{
		Name:    "fastwalk",
		Workers: threads,
		Dirs:    ref.Dirs,
		Files:   ref.Files,
		Errors:  ref.Errors,
		Elapsed: time.Since(start),
	}

	return []report.BenchResult{hybrid, fast}, nil
}
