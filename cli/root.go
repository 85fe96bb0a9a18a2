// Package cli builds the parfind command line.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/riadafridishibly/parfind/config"
)

// Version is set at build time.
var Version = "dev"

const longHelp = `Find files and directories in parallel.

parfind walks every PATH (default ".") with a pool of worker threads. Workers
share newly found directories while the shared queue is short and recurse
into them directly once it is long enough, which keeps memory bounded on
large trees.

Actions run for every entry that passed all filters, in this order:
print, --exec, --copyto, --unlink.

  --exec CMD [ARGS...] ;   run CMD for each match, "{}" in ARGS is replaced
                           by the path. Quote the ";" for your shell.

Every option can also be set in the config file or through environment
variables named PARFIND_<OPTION>, e.g. PARFIND_THREADS=32.`

// NewRootCommand returns the parfind command. execArgs is the command line
// taken out of the arguments by ExtractExec.
func NewRootCommand(env Env, execArgs []string) *cobra.Command {
	v := config.NewViper()
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "parfind [PATH...]",
		Short:         "Parallel find",
		Long:          longHelp,
		Version:       Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				return config.ReadConfigFile(v, cfgFile, true)
			}
			return config.ReadConfigFile(v, config.DefaultConfigFile(), false)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromViper(v)
			cfg.Paths = args
			cfg.Exec = execArgs
			if err := cfg.Validate(); err != nil {
				return err
			}
			return Run(cmd.Context(), cfg, env)
		},
	}
	cmd.SetIn(env.Stdin)
	cmd.SetOut(env.Stdout)
	cmd.SetErr(env.Stderr)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/parfind/config.yaml)")

	f := cmd.Flags()
	f.SetNormalizeFunc(aliasNormalizer)
	f.SortFlags = false

	f.IntP(config.KeyThreads, "t", config.DefaultThreads, "number of scan threads")
	f.Int(config.KeyGoDeep, 0, "switch to depth-first recursion when this many dirs are queued (0 = threads)")
	f.Int(config.KeyMaxDepth, config.DefaultMaxDepth, "descend at most this many levels below each path")
	f.Bool(config.KeyStat, false, "get full metadata of every entry")
	f.Bool(config.KeyXdev, false, "don't descend into other filesystems (alias: --mount)")
	f.Bool(config.KeyQuit, false, "stop after the first match (best effort with several threads)")

	f.String(config.KeyType, "", "entry type: b, c, d, p, l, f or s")
	f.StringArray(config.KeyName, nil, "base name glob, may be repeated (OR)")
	f.String(config.KeyPath, "", "full path glob, only matches non-directories")
	f.String(config.KeySize, "", "size: [+|-]N[cbwkMG], plain N is bytes")
	f.String(config.KeyAtime, "", "atime in days: [+|-]N")
	f.String(config.KeyCtime, "", "ctime in days: [+|-]N")
	f.String(config.KeyMtime, "", "mtime in days: [+|-]N")
	f.String(config.KeyNewer, "", "modified more recently than PATH")
	f.String(config.KeyUser, "", "user name or numeric uid (alias: --uid)")
	f.String(config.KeyGroup, "", "group name or numeric gid (alias: --gid)")

	f.Bool(config.KeyNoPrint, false, "don't print matches")
	f.Bool(config.KeyPrint0, false, "terminate printed paths with NUL instead of newline")
	f.Bool(config.KeyJSON, false, "print one JSON object per match")
	f.Bool(config.KeyNoSummary, false, "don't print the summary")
	f.Bool(config.KeyVerbose, false, "verbose diagnostics")
	f.String(config.KeyColor, "auto", "color diagnostics: auto, always or never")

	f.String(config.KeyCopyTo, "", "copy matches below DIR, keeping the tree layout")
	f.Bool(config.KeyNoCopyErr, false, "count copy errors instead of aborting")
	f.Bool(config.KeyNoTimeUpd, false, "don't copy atime and mtime to copies")
	f.Bool(config.KeyUnlink, false, "unlink matched files (never directories)")
	f.Bool(config.KeyNoDelErr, false, "count unlink errors instead of aborting")
	f.Bool(config.KeyACLCheck, false, "count entries with POSIX ACLs")

	bindFlags(v, f)

	cmd.AddCommand(newBenchCommand(env))

	return cmd
}

func bindFlags(v *viper.Viper, f *pflag.FlagSet) {
	f.VisitAll(func(fl *pflag.Flag) {
		// errors only happen for a nil flag
		_ = v.BindPFlag(fl.Name, fl)
	})
}

var flagAliases = map[string]string{
	"mount": config.KeyXdev,
	"uid":   config.KeyUser,
	"gid":   config.KeyGroup,
}

func aliasNormalizer(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if to, ok := flagAliases[name]; ok {
		name = to
	}
	return pflag.NormalizedName(name)
}
