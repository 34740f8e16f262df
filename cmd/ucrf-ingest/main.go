package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/crimson-sun/ucrf/internal/config"
	"github.com/crimson-sun/ucrf/internal/engine/enricher"
	"github.com/crimson-sun/ucrf/internal/logging"
	"github.com/crimson-sun/ucrf/internal/output"
	"github.com/crimson-sun/ucrf/internal/output/file"
	"github.com/crimson-sun/ucrf/internal/output/multi"
	"github.com/crimson-sun/ucrf/internal/output/stdout"
	"github.com/crimson-sun/ucrf/internal/output/store"
	"github.com/crimson-sun/ucrf/internal/output/xlsx"
	"github.com/crimson-sun/ucrf/internal/pipeline"
	"github.com/crimson-sun/ucrf/internal/repository"
	"github.com/crimson-sun/ucrf/internal/source"

	// Register source implementations.
	_ "github.com/crimson-sun/ucrf/internal/source/bucket"
	_ "github.com/crimson-sun/ucrf/internal/source/file"
	_ "github.com/crimson-sun/ucrf/internal/source/nhtsa"
)

// specList collects repeated -source flags.
type specList []string

func (s *specList) String() string { return strings.Join(*s, ",") }

func (s *specList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type flags struct {
	sources       specList
	csvPath       string
	xlsxPath      string
	toDB          bool
	toStdout      bool
	pretty        bool
	referenceYear int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var f flags
	flag.Var(&f.sources, "source", fmt.Sprintf("raw table as scheme:location, repeatable (schemes: %s)", strings.Join(source.Schemes(), ", ")))
	flag.StringVar(&f.csvPath, "csv", cfg.Ingest.OutputCSV, "write the processed training table to this CSV file")
	flag.StringVar(&f.xlsxPath, "xlsx", cfg.Ingest.OutputXLSX, "write the processed table to this XLSX workbook")
	flag.BoolVar(&f.toDB, "db", false, "persist vehicles and service summaries to the configured database")
	flag.BoolVar(&f.toStdout, "stdout", false, "write enriched rows to stdout as NDJSON")
	flag.BoolVar(&f.pretty, "pretty", false, "indent NDJSON output")
	flag.IntVar(&f.referenceYear, "reference-year", cfg.ReferenceYear, "year vehicle ages are computed against")
	flag.Parse()

	if len(f.sources) == 0 {
		f.sources = cfg.Ingest.Sources
	}

	// Logs go to stderr; JSON when rows stream to stdout.
	format := cfg.Log.Format
	if f.toStdout {
		format = logging.FormatJSON
	}
	logger := logging.Init(format, logging.ParseLevel(cfg.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, f, logger); err != nil {
		var tce *enricher.TypeConversionError
		if errors.As(err, &tce) {
			logger.Error("malformed source data", "row", tce.Row, "column", tce.Column, "value", tce.Value)
		} else {
			logger.Error("ingestion failed", "error", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, f flags, logger *slog.Logger) error {
	if len(f.sources) == 0 {
		return errors.New("no sources given (use -source or UCRF_SOURCES)")
	}

	env := source.Env{NHTSAEndpoint: cfg.Ingest.NHTSAEndpoint, S3Region: cfg.Models.S3Region}
	sources := make([]source.Source, 0, len(f.sources))
	for _, spec := range f.sources {
		s, err := source.Open(spec, env)
		if err != nil {
			return err
		}
		sources = append(sources, s)
	}

	var outs []output.Output
	closeAll := func() {
		for _, o := range outs {
			o.Close()
		}
	}
	if f.csvPath != "" {
		o, err := file.New(f.csvPath)
		if err != nil {
			return err
		}
		outs = append(outs, o)
	}
	if f.xlsxPath != "" {
		o, err := xlsx.New(f.xlsxPath)
		if err != nil {
			closeAll()
			return err
		}
		outs = append(outs, o)
	}
	if f.toDB {
		if !cfg.Database.Enabled() {
			closeAll()
			return fmt.Errorf("-db requires UCRF_DATABASE_URL, got %q", cfg.Database.URL)
		}
		db, err := repository.Open(ctx, repository.Config{
			URL:         cfg.Database.URL,
			MaxConns:    int32(cfg.Database.MaxConns),
			DialTimeout: cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			closeAll()
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			closeAll()
			return err
		}
		outs = append(outs, store.New(
			repository.NewVehicleRepository(db, logger),
			repository.NewServiceHistoryRepository(db, logger),
			store.WithLogger(logger)))
	}
	if f.toStdout || len(outs) == 0 {
		outs = append(outs, stdout.New(f.pretty))
	}

	p := pipeline.New(enricher.New(f.referenceYear), multi.New(outs...), logger)
	_, err := p.Run(ctx, sources...)
	if cerr := p.Close(); err == nil {
		err = cerr
	}
	return err
}
