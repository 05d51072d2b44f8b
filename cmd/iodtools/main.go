package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/007-hpr/orbitdeterminator/internal/config"
	"github.com/007-hpr/orbitdeterminator/internal/db"
	"github.com/007-hpr/orbitdeterminator/internal/logging"
	"github.com/007-hpr/orbitdeterminator/internal/migrate"
)

var version = "dev"
var appName = "iodtools"

const usage = `usage: %s <command>
  migrate  apply pending schema migrations
  status   list schema migrations and when they were applied
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewStderr(cfg, version, appName)
	slog.SetDefault(logger)

	conn, err := db.Open(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	ctx := context.Background()
	switch os.Args[1] {
	case "migrate":
		n, err := migrate.Run(ctx, conn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d migrations applied\n", n)
	case "status":
		migrations, err := migrate.Status(ctx, conn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "status: %v\n", err)
			os.Exit(1)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED AT")
		for _, m := range migrations {
			appliedAt := "pending"
			if m.Applied {
				appliedAt = m.AppliedAt
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Version, m.Name, appliedAt)
		}
		if err := tw.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "status: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}
