package main

import (
	"flag"
	"fmt"
	"os"

	"rewind/internal"
	"rewind/internal/di"
	"rewind/internal/providers"
	"rewind/internal/structures"
)

func parseFlags() *structures.CliFlags {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "rewind.yaml", "path to the configuration file")
	flag.StringVar(&flags.Mode, "mode", "analyze", "one of: analyze, report, query, serve")
	flag.StringVar(&flags.UserID, "user", "", "subject user id (overrides config)")
	flag.IntVar(&flags.Year, "year", 0, "target year (overrides config)")
	flag.StringVar(&flags.ExportDir, "export", "", "export root directory (overrides config)")
	flag.StringVar(&flags.DBPath, "db", "", "database file path (overrides config)")
	flag.StringVar(&flags.ReportPath, "out", "", "report output path (overrides config)")
	flag.BoolVar(&flags.DebugMode, "debug", false, "enable debug logging")
	flag.Parse()
	return flags
}

func main() {
	flags := parseFlags()

	if flags.Mode == "serve" {
		if _, err := di.InitApp(flags); err != nil {
			fmt.Fprintf(os.Stderr, "rewind: %s\n", err)
			os.Exit(1)
		}
		return
	}

	conf, err := providers.NewConfigProvider(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rewind: invalid configuration: %s\n", err)
		os.Exit(1)
	}
	logger, err := providers.NewLogProvider(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rewind: %s\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	if err := internal.Run(flags.Mode, conf, logger); err != nil {
		logger.Fatalf(providers.TypeApp, "%s", err)
	}
}
