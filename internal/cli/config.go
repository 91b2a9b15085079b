package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Setting keys. Each is also read from GRIDPATH_<KEY> and from the --config
// file.
const (
	KeyDatabase      = "database"
	KeyWorkers       = "workers"
	KeySolverTimeout = "solver_timeout"
	KeyMetricsFile   = "metrics_file"
	KeyTraceFile     = "trace_file"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GRIDPATH"

// newSettings returns a viper instance reading the environment and, if path
// is set, a settings file.
func newSettings(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault(KeyWorkers, 1)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

// settings returns the settings, creating them on first use so commands
// built without the root still see the environment.
func (o *RootOptions) settings() (*viper.Viper, error) {
	if o.viper == nil {
		v, err := newSettings(o.ConfigFile)
		if err != nil {
			return nil, err
		}
		o.viper = v
	}
	return o.viper, nil
}

// bindFlags binds setting keys to a command's flags. A flag given on the
// command line wins over the environment and the settings file; an unset
// flag only supplies the default.
func (o *RootOptions) bindFlags(cmd *cobra.Command, flags map[string]string) (*viper.Viper, error) {
	v, err := o.settings()
	if err != nil {
		return nil, err
	}
	for key, name := range flags {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			return nil, fmt.Errorf("no flag %q for setting %s", name, key)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return v, nil
}

// runSettings are the resolved settings for commands that touch the store
// or run the solver.
type runSettings struct {
	Database      string
	Workers       int
	SolverTimeout time.Duration
	MetricsFile   string
	TraceFile     string
}

func readRunSettings(v *viper.Viper) (runSettings, error) {
	s := runSettings{
		Database:      v.GetString(KeyDatabase),
		Workers:       v.GetInt(KeyWorkers),
		SolverTimeout: v.GetDuration(KeySolverTimeout),
		MetricsFile:   v.GetString(KeyMetricsFile),
		TraceFile:     v.GetString(KeyTraceFile),
	}
	if s.Workers < 1 {
		return s, fmt.Errorf("%s must be at least 1, got %d", KeyWorkers, s.Workers)
	}
	if s.SolverTimeout < 0 {
		return s, fmt.Errorf("%s must be non-negative", KeySolverTimeout)
	}
	return s, nil
}
