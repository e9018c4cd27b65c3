// Package cmd wires mvtfilter's cobra command tree to viper-backed
// configuration.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mvtfilter/internal"
	"mvtfilter/internal/config"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "mvtfilter",
	Short: "Filter PMTiles vector tiles against a spatial Maplibre-style expression document",
	Long: `mvtfilter reads a PMTiles archive, applies a spatially-scoped
Maplibre-style filter document to every tile's features and tags, and
writes the result as an MBTiles archive.`,
	Args:         cobra.ExactArgs(2),
	RunE:         runRun,
	SilenceUsage: true,
}

func init() {
	config.SetDefaults(v)

	rootCmd.PersistentFlags().StringP("filter", "f", "", "filter document path (GeoJSON)")
	rootCmd.PersistentFlags().StringP("name", "n", "", "override output metadata name")
	rootCmd.PersistentFlags().StringP("description", "N", "", "override output metadata description")
	rootCmd.PersistentFlags().StringP("attribution", "A", "", "override output metadata attribution")
	rootCmd.PersistentFlags().Int("concurrency", 0, "worker count (0 = number of CPUs)")
	rootCmd.PersistentFlags().Bool("lenient", false, "pass tiles through unmodified on decode/decompress error instead of aborting")
	rootCmd.PersistentFlags().Bool("progress", false, "log periodic progress")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")

	bind := func(key, flag string) {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("cmd: bind flag %q: %v", flag, err))
		}
	}
	bind("filter", "filter")
	bind("name", "name")
	bind("description", "description")
	bind("attribution", "attribution")
	bind("concurrency", "concurrency")
	bind("lenient", "lenient")
	bind("progress", "progress")
	bind("logging.verbose", "verbose")

	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	for _, c := range []*cobra.Command{rootCmd, runCmd, validateCmd} {
		check := c.Args
		c.Args = func(cmd *cobra.Command, args []string) error {
			if err := check(cmd, args); err != nil {
				return &usageError{err: err}
			}
			return nil
		}
	}
}

func initConfig() {
	v.SetEnvPrefix("MVTFILTER")
	v.AutomaticEnv()

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")
	v.SetConfigName(".mvtfilter")
	_ = v.ReadInConfig() // absence of a config file is not an error
}

// Execute runs the command tree; it is the sole entry point main calls.
// Exit code 2 means bad invocation (flag/arg parsing, configuration,
// filter document validation); 1 means everything else (I/O, decode,
// write failures); 0 means success.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var usage *usageError
	if errors.As(err, &usage) {
		return 2
	}

	var ie *internal.Error
	if errors.As(err, &ie) {
		switch ie.Code {
		case internal.ErrorCodeConfig, internal.ErrorCodeValidation:
			return 2
		default:
			return 1
		}
	}

	return 1
}

// usageError marks an error that should exit 2 (bad invocation) rather
// than 1 (runtime failure).
type usageError struct{ err error }

func (u *usageError) Error() string { return u.err.Error() }
func (u *usageError) Unwrap() error { return u.err }

func newUsageError(format string, args ...interface{}) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func newLogger(verbose bool, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
