// Command indexer builds the inverted index of a corpus and writes it as a
// JSON file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/searchlab/termindex/internal/indexer"
	"github.com/searchlab/termindex/internal/indexer/export"
	"github.com/searchlab/termindex/internal/ingestion/loader"
	"github.com/searchlab/termindex/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		corpusFlags loader.Flags
		output      string
		compress    bool
		format      string
	)
	flagSet := pflag.NewFlagSet("indexer", pflag.ContinueOnError)
	corpusFlags.AddFlags(flagSet)
	flagSet.StringVarP(&output, "output", "o", "", "output path without extension (default from config)")
	flagSet.BoolVar(&compress, "compress", false, "gzip the exported index")
	flagSet.StringVar(&format, "format", "", "export format: frequencies or documents (default from config)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			fmt.Fprintf(os.Stderr, "Usage: indexer [flags]\n\nBuild the inverted index of a corpus and export it as JSON.\n\nFlags:\n")
			flagSet.PrintDefaults()
			return nil
		}
		return err
	}

	cfg, err := corpusFlags.Config()
	if err != nil {
		return err
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	if flagSet.Changed("output") {
		cfg.Index.ExportPath = output
	}
	if flagSet.Changed("compress") {
		cfg.Index.Compressed = compress
	}
	if flagSet.Changed("format") {
		cfg.Index.Format = format
	}
	exportFormat, err := export.ParseFormat(cfg.Index.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	corpus, err := loader.Corpus(ctx, cfg)
	if err != nil {
		return err
	}
	engine := indexer.NewEngine(corpus)

	path, err := engine.Export(cfg.Index.ExportPath, export.Options{
		Format:     exportFormat,
		Compressed: cfg.Index.Compressed,
	})
	if err != nil {
		return err
	}
	slog.Info("indexer finished", "path", path)
	fmt.Println(path)
	return nil
}
