package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	fitintervals "github.com/lucasjlepore/fit-intervals"
	"github.com/lucasjlepore/fit-intervals/config"
	"github.com/lucasjlepore/fit-intervals/export"
	"github.com/lucasjlepore/fit-intervals/logging"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "Config file (yaml, json or toml)")
		laps     = flag.String("laps", "", "Comma separated lap numbers to select, e.g. 2,3")
		ranges   = flag.String("range", "", "Comma separated ad-hoc ranges in seconds, e.g. 100-200,300-420")
		metrics  = flag.String("metrics", "", "Override interval_metrics, e.g. duration,power_avg,hr_avg")
		units    = flag.String("units", "", "metric|imperial")
		mode     = flag.String("mode", "", "Multi-interval mode: aggregate|per_interval")
		lang     = flag.String("lang", "", "Language for labels and numbers, e.g. en, de, fr")
		ftp      = flag.Float64("ftp", 0, "FTP in watts for IF, TSS and power zones")
		format   = flag.String("format", "text", "Output format: text|yaml|json")
		exportTo = flag.String("export", "", "Write the selection's synthetic stream to a .csv or .parquet file")
		showLaps = flag.Bool("list-laps", false, "List the session's intervals in text output")
		verbose  = flag.Bool("v", false, "Log debug output to stderr")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <path-to-fit-file>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env failed: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config failed: %v\n", err)
		os.Exit(1)
	}
	override(&cfg.IntervalMetrics, *metrics)
	override(&cfg.Units, *units)
	override(&cfg.MultiIntervalMode, *mode)
	override(&cfg.Language, *lang)
	if *ftp > 0 {
		cfg.Zones.FTPWatts = *ftp
	}

	logger, err := logging.New(logging.Options{
		Development: cfg.Log.Development || *verbose,
		File:        cfg.Log.File,
		Quiet:       !*verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, flag.Arg(0), *laps, *ranges, *format, *exportTo, *showLaps); err != nil {
		fmt.Fprintf(os.Stderr, "fit_intervals failed: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger, fitPath, laps, ranges, format, exportTo string, showLaps bool) error {
	engine, err := fitintervals.NewEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	sess, err := engine.LoadFile(fitPath)
	if err != nil {
		return err
	}

	lapNums, err := fitintervals.ParseLaps(laps)
	if err != nil {
		return err
	}
	if err := engine.SelectLapsAndRanges(sess.ID, lapNums, splitList(ranges)); err != nil {
		return err
	}

	if err := fitintervals.Render(os.Stdout, format, sess, engine.Assembler.Current()); err != nil {
		return err
	}
	if showLaps && (format == "" || format == "text") {
		current, _ := engine.Workspace.Session(sess.ID)
		fitintervals.RenderLaps(os.Stdout, current)
	}

	if exportTo != "" {
		stream, stats, err := engine.SelectionStream(sess.ID)
		if err != nil {
			return err
		}
		if err := export.WriteFile(exportTo, stream); err != nil {
			return err
		}
		logger.Info("selection exported",
			zap.String("path", exportTo),
			zap.Int("samples", stats.Included),
			zap.Int("boundaries", stats.Boundaries),
		)
	}
	return nil
}

func override(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
