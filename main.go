package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trademe-analyzer/config"
	"trademe-analyzer/extractor"
	"trademe-analyzer/progress"
	"trademe-analyzer/scraper/trademe"
	"trademe-analyzer/services"
	"trademe-analyzer/session"
	"trademe-analyzer/storage"
	"trademe-analyzer/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	url := flag.String("url", cfg.StartURL, "marketplace page to analyze")
	file := flag.String("file", cfg.InputFile, "analyze a saved HTML page instead of fetching")
	maxItems := flag.Int("max", cfg.MaxItems, "maximum number of items to collect")
	category := flag.String("category", cfg.Category, "category hint passed to the run")
	out := flag.String("out", cfg.ReportPath, "report file path")
	static := flag.Bool("static", !cfg.UseBrowser, "fetch pages over plain HTTP instead of a browser")
	flag.Parse()

	cfg.StartURL = *url
	cfg.InputFile = *file
	cfg.Category = *category
	cfg.ReportPath = *out
	cfg.UseBrowser = !*static
	if *maxItems > 0 {
		cfg.MaxItems = *maxItems
	}
	logger.SetLevel(utils.ParseLevel(cfg.LogLevel))

	if err := run(cfg, logger); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *utils.Logger) error {
	logger.Info("=== Trade Me Sales Analyzer starting ===")
	logger.Info("Config — max items: %d | max pages: %d | browser: %v | timeout: %v",
		cfg.MaxItems, cfg.MaxPages, cfg.UseBrowser, cfg.RunTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, nav, closeHost, err := openHost(ctx, cfg, logger)
	if err != nil {
		logger.Error("Could not open the page: %v", err)
		return err
	}
	defer closeHost()

	analyzer := extractor.NewAnalyzer(cfg, logger, extractor.WithReporter(progress.Log{Logger: logger}))
	runner := session.NewRunner(analyzer, cfg.RunTimeout, logger)

	result, err := runner.Run(ctx, host, nav, extractor.Params{Category: cfg.Category, MaxItems: cfg.MaxItems})
	if err != nil {
		var e *extractor.Error
		if errors.As(err, &e) {
			logger.Error("%s", e.UserMessage())
		} else {
			logger.Error("Analysis failed: %v", err)
		}
		return err
	}

	services.NewInsightService(logger, cfg.Thresholds.TopItems).Print(os.Stdout, result)

	writer, err := storage.NewFileWriter(cfg.ReportPath, storage.NewSerializer(cfg.ReportBOM))
	if err != nil {
		logger.Error("Failed to create report file: %v", err)
		return err
	}
	defer writer.Close()

	if err := writer.Write(result); err != nil {
		logger.Error("Report write failed: %v", err)
		return err
	}

	fmt.Printf("  Done. %d items analyzed | Report → %s\n\n", len(result.Items), writer.Path())
	return nil
}

// openHost picks the page source: a saved file, a headless browser, or
// plain HTTP. A saved file is a single page and cannot paginate.
func openHost(ctx context.Context, cfg *config.Config, logger *utils.Logger) (extractor.Host, extractor.Navigator, func(), error) {
	openCtx := ctx
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		openCtx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	if cfg.InputFile != "" {
		s := trademe.NewStatic(cfg, logger)
		if err := s.OpenFile(cfg.InputFile, cfg.StartURL); err != nil {
			return nil, nil, nil, err
		}
		return s, nil, func() {}, nil
	}

	if !cfg.UseBrowser {
		s := trademe.NewStatic(cfg, logger)
		if err := s.Open(openCtx, cfg.StartURL); err != nil {
			return nil, nil, nil, err
		}
		return s, s, func() {}, nil
	}

	b, err := trademe.NewBrowser(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := b.Open(openCtx, cfg.StartURL); err != nil {
		b.Close()
		return nil, nil, nil, err
	}
	return b, b, func() { b.Close() }, nil
}
