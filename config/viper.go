package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that set options, e.g.
// PARFIND_THREADS.
const EnvPrefix = "PARFIND"

// Option keys shared by flags, environment and config file.
const (
	KeyThreads   = "threads"
	KeyGoDeep    = "godeep"
	KeyMaxDepth  = "maxdepth"
	KeyStat      = "stat"
	KeyXdev      = "xdev"
	KeyQuit      = "quit"
	KeyType      = "type"
	KeyName      = "name"
	KeyPath      = "path"
	KeySize      = "size"
	KeyAtime     = "atime"
	KeyCtime     = "ctime"
	KeyMtime     = "mtime"
	KeyNewer     = "newer"
	KeyUser      = "user"
	KeyGroup     = "group"
	KeyNoPrint   = "noprint"
	KeyPrint0    = "print0"
	KeyJSON      = "json"
	KeyNoSummary = "nosummary"
	KeyVerbose   = "verbose"
	KeyColor     = "color"
	KeyCopyTo    = "copyto"
	KeyNoCopyErr = "nocopyerr"
	KeyNoTimeUpd = "notimeupd"
	KeyUnlink    = "unlink"
	KeyNoDelErr  = "nodelerr"
	KeyACLCheck  = "aclcheck"
)

// NewViper returns a viper instance with defaults and environment lookup
// configured.
func NewViper() *viper.Viper {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault(KeyThreads, d.Threads)
	v.SetDefault(KeyGoDeep, d.GoDeep)
	v.SetDefault(KeyMaxDepth, d.MaxDepth)
	v.SetDefault(KeyColor, d.Color)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

// DefaultConfigFile is $XDG_CONFIG_HOME/parfind/config.yaml, or "" when no
// config directory can be determined.
func DefaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "parfind", "config.yaml")
}

// ReadConfigFile loads path into v. A missing file is only an error when
// required is set.
func ReadConfigFile(v *viper.Viper, path string, required bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config file: %w", err)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	return nil
}

// FromViper builds a Config from the option keys in v. Paths and Exec are
// not options and are left empty.
func FromViper(v *viper.Viper) Config {
	return Config{
		Threads:  v.GetInt(KeyThreads),
		GoDeep:   v.GetInt(KeyGoDeep),
		MaxDepth: v.GetInt(KeyMaxDepth),

		Stat: v.GetBool(KeyStat),
		Xdev: v.GetBool(KeyXdev),
		Quit: v.GetBool(KeyQuit),

		Type:  v.GetString(KeyType),
		Names: v.GetStringSlice(KeyName),
		Path:  v.GetString(KeyPath),
		Size:  v.GetString(KeySize),
		Atime: v.GetString(KeyAtime),
		Ctime: v.GetString(KeyCtime),
		Mtime: v.GetString(KeyMtime),
		Newer: v.GetString(KeyNewer),
		User:  v.GetString(KeyUser),
		Group: v.GetString(KeyGroup),

		NoPrint:   v.GetBool(KeyNoPrint),
		Print0:    v.GetBool(KeyPrint0),
		JSON:      v.GetBool(KeyJSON),
		NoSummary: v.GetBool(KeyNoSummary),
		Verbose:   v.GetBool(KeyVerbose),
		Color:     v.GetString(KeyColor),

		CopyTo:    v.GetString(KeyCopyTo),
		NoCopyErr: v.GetBool(KeyNoCopyErr),
		NoTimeUpd: v.GetBool(KeyNoTimeUpd),
		Unlink:    v.GetBool(KeyUnlink),
		NoDelErr:  v.GetBool(KeyNoDelErr),
		ACLCheck:  v.GetBool(KeyACLCheck),
	}
}
