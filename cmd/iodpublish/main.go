// Command iodpublish sends IOD observation files to the broker on an
// observer's report topic.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/007-hpr/orbitdeterminator/internal/config"
	"github.com/007-hpr/orbitdeterminator/internal/iod"
	"github.com/007-hpr/orbitdeterminator/internal/logging"
	"github.com/007-hpr/orbitdeterminator/internal/mqtt"
)

var version = "dev"
var appName = "iodpublish"

type reportPublisher interface {
	PublishReport(observer string, lines []string) error
}

func main() {
	var (
		observer string
		batch    int
		clientID string
		timeout  time.Duration
	)
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.StringVar(&observer, "observer", "", "observer id used in the report topic (required)")
	fs.IntVar(&batch, "batch", 0, "lines per message, 0 sends each file as one report")
	fs.StringVar(&clientID, "client-id", fmt.Sprintf("%s-%d", appName, os.Getpid()), "mqtt client id")
	fs.DurationVar(&timeout, "connect-timeout", 10*time.Second, "broker connect timeout")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s --observer ID [flags] [file ...]\n\nReads standard input when no file is given.\n\n", appName)
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
	cfg.MQTTClientID = clientID
	logger := logging.NewStderr(cfg, version, appName)
	slog.SetDefault(logger)

	if observer == "" {
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher := mqtt.NewPublisher(cfg, logger)
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	err = publisher.Connect(connectCtx)
	cancel()
	if err != nil {
		logger.Error("mqtt connect failed", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort, "error", err)
		os.Exit(1)
	}
	defer publisher.Disconnect()

	files := fs.Args()
	if len(files) == 0 {
		files = []string{"-"}
	}
	for _, path := range files {
		n, err := publishFile(publisher, observer, path, batch, os.Stdin)
		if err != nil {
			logger.Error("publish failed", "file", path, "error", err)
			os.Exit(1)
		}
		logger.Info("published", "file", path, "observer", observer, "messages", n)
	}
}

// publishFile validates every line of the file before sending anything, so a
// malformed file is never partially published. It returns the number of
// messages sent.
func publishFile(p reportPublisher, observer, path string, batch int, stdin io.Reader) (int, error) {
	lines, err := readLines(path, stdin)
	if err != nil {
		return 0, err
	}
	if _, err := iod.ParseLines(lines); err != nil {
		return 0, fmt.Errorf("validate: %w", err)
	}

	records := lines[:0:0]
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" && !strings.HasPrefix(t, "#") {
			records = append(records, l)
		}
	}
	if len(records) == 0 {
		return 0, nil
	}

	sent := 0
	for _, chunk := range chunks(records, batch) {
		if err := p.PublishReport(observer, chunk); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func readLines(path string, stdin io.Reader) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

// chunks splits lines into groups of at most size; size <= 0 yields one group.
func chunks(lines []string, size int) [][]string {
	if size <= 0 || size >= len(lines) {
		return [][]string{lines}
	}
	var out [][]string
	for start := 0; start < len(lines); start += size {
		end := min(start+size, len(lines))
		out = append(out, lines[start:end])
	}
	return out
}
