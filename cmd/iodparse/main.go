// Command iodparse decodes IOD observation files and prints the dataset as
// JSON, CSV or YAML.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/pflag"

	"github.com/007-hpr/orbitdeterminator/internal/config"
	"github.com/007-hpr/orbitdeterminator/internal/export"
	"github.com/007-hpr/orbitdeterminator/internal/iod"
	"github.com/007-hpr/orbitdeterminator/internal/logging"
)

var version = "dev"
var appName = "iodparse"

type options struct {
	format  string
	rows    bool
	workers int
	output  string
	verbose bool
}

func main() {
	var opts options
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.StringVarP(&opts.format, "format", "f", "json", "output format: json, csv or yaml")
	fs.BoolVar(&opts.rows, "rows", false, "emit one record per line instead of columns (json, yaml)")
	fs.IntVarP(&opts.workers, "workers", "w", runtime.NumCPU(), "lines decoded concurrently")
	fs.StringVarP(&opts.output, "output", "o", "-", "output file, - for stdout")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] [file ...]\n\nReads standard input when no file is given.\n\n", appName)
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if opts.verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	logger := logging.NewStderr(cfg, version, appName)
	slog.SetDefault(logger)

	if err := run(opts, fs.Args(), os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("iodparse failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options, files []string, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.workers < 1 {
		return fmt.Errorf("--workers must be >= 1, got %d", opts.workers)
	}

	ds, err := decode(files, stdin, iod.WithWorkers(opts.workers), logger)
	if err != nil {
		return err
	}

	out := stdout
	if opts.output != "" && opts.output != "-" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				logger.Error("close output", "path", opts.output, "error", err)
			}
		}()
		out = f
	}

	if err := export.Write(out, ds, format, opts.rows); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	logger.Debug("dataset written", "lines", ds.Len(), "format", format)
	return nil
}

// decode parses every file in order into one dataset. "-" or no files reads
// stdin.
func decode(files []string, stdin io.Reader, opt iod.Option, logger *slog.Logger) (*iod.Dataset, error) {
	if len(files) == 0 {
		files = []string{"-"}
	}

	all := iod.NewDataset(0)
	for _, path := range files {
		var (
			ds  *iod.Dataset
			err error
		)
		if path == "-" {
			ds, err = iod.Parse(stdin, opt)
			if err != nil {
				err = fmt.Errorf("stdin: %w", err)
			}
		} else {
			ds, err = iod.ParseFile(path, opt)
		}
		if err != nil {
			return nil, err
		}
		logger.Debug("decoded", "source", displayName(path), "lines", ds.Len())
		for i := range ds.Len() {
			all.Append(ds.Row(i))
		}
	}
	return all, nil
}

func displayName(path string) string {
	if strings.TrimSpace(path) == "-" {
		return "stdin"
	}
	return path
}
