package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix = "ARENACTL"
	keyConfig = "config"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	outFormat  string
	bufSize    int
	backing    string
	charset    string
	configFile string

	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var rootCmd = &cobra.Command{
	Use:   "arenactl",
	Short: "Exercise and inspect fixed-buffer arenas",
	Long: `arenactl drives the bufalloc arena allocator from the command line. It
replays allocation traces, runs seeded random workloads with invariant checks,
dumps region lists and prints the region layout for a given buffer size.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(cmd); err != nil {
			return fmt.Errorf("failed to initialize configuration: %w", err)
		}
		initLogger()
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format (same as --format json)")
	rootCmd.PersistentFlags().StringVar(&outFormat, "format", "text", "Output format: text, json or cbor")
	rootCmd.PersistentFlags().IntVar(&bufSize, "size", 64*1024, "Arena buffer size in bytes")
	rootCmd.PersistentFlags().StringVar(&backing, "backing", "heap", "Backing memory: heap or mmap")
	rootCmd.PersistentFlags().StringVar(&charset, "charset", "utf8", "Charset for dumps: utf8, cp437, cp850, latin1, windows-1252")
	rootCmd.PersistentFlags().StringVar(&configFile, keyConfig, "", "Config file (yaml, json or toml)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initializeConfig layers the config file and ARENACTL_* environment
// variables under flags the user did not set.
func initializeConfig(cmd *cobra.Command) error {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", configFile, err)
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	return bindFlags(cmd, v)
}

// bindFlags applies viper values to every flag that was not set explicitly.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindFlagErr []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == keyConfig {
			return
		}

		// Environment variables can't have dashes in them.
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				bindFlagErr = append(bindFlagErr, fmt.Errorf("binding env to flag %q: %w", f.Name, err))
				return
			}
		}

		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				bindFlagErr = append(bindFlagErr, fmt.Errorf("setting flag %q value: %w", f.Name, err))
				return
			}
		}
	})
	return errors.Join(bindFlagErr...)
}

// initLogger logs to stderr at debug level in verbose mode and only reports
// errors otherwise.
func initLogger() {
	level := slog.LevelError
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// outputFormat resolves --json and --format into one of text, json or cbor.
func outputFormat() (string, error) {
	if jsonOut {
		return "json", nil
	}
	switch f := strings.ToLower(outFormat); f {
	case "", "text":
		return "text", nil
	case "json", "cbor":
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q", outFormat)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// printCBOR outputs data as a single CBOR item
func printCBOR(v interface{}) error {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return err
	}
	data, err := em.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cbor: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

// emit writes v in the selected output format, calling text for plain output.
func emit(v interface{}, text func()) error {
	f, err := outputFormat()
	if err != nil {
		return err
	}
	switch f {
	case "json":
		return printJSON(v)
	case "cbor":
		return printCBOR(v)
	default:
		text()
		return nil
	}
}
