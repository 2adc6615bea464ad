// Command deckster runs the conversational presentation builder as a
// terminal REPL.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"deckster/pkg/checkpoint"
	"deckster/pkg/config"
	"deckster/pkg/deckbuilder"
	"deckster/pkg/director"
	"deckster/pkg/intent"
	"deckster/pkg/layouts"
	"deckster/pkg/llm"
	llmmetrics "deckster/pkg/llm/middleware/metrics"
	"deckster/pkg/llmimpl"
	"deckster/pkg/logx"
	"deckster/pkg/metrics"
	"deckster/pkg/session"
	"deckster/pkg/textsvc"
	"deckster/pkg/transform"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "deckster: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.json", "path to the configuration file")
	resume := flag.String("resume", "", "session ID to resume from the checkpoint store")
	flag.Parse()

	logger := logx.NewLogger("main")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	catalog, err := layouts.NewCatalog()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := director.NewStageTracker()
	ledger := llmmetrics.NewUsageLedger()
	factory := llmimpl.NewFactory(cfg.Metrics.Enabled, ledger)

	// Stages sharing a model share one middleware chain.
	clientCache := make(map[string]llm.LLMClient)
	clientFor := func(model string) (llm.LLMClient, error) {
		if client, ok := clientCache[model]; ok {
			return client, nil
		}
		client, err := factory.CreateClient(model, tracker, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create client for model %s: %w", model, err)
		}
		clientCache[model] = client
		return client, nil
	}

	var clients director.StageClients
	for _, binding := range []struct {
		model  string
		target *llm.LLMClient
	}{
		{cfg.Models.Greeting, &clients.Greeting},
		{cfg.Models.Questions, &clients.Questions},
		{cfg.Models.Plan, &clients.Plan},
		{cfg.Models.Strawman, &clients.Strawman},
		{cfg.Models.Refine, &clients.Refine},
	} {
		if *binding.target, err = clientFor(binding.model); err != nil {
			return err
		}
	}

	intentClient, err := clientFor(cfg.Models.Intent)
	if err != nil {
		return err
	}

	var layoutClient llm.LLMClient
	if cfg.Models.Layout != "" {
		if layoutClient, err = clientFor(cfg.Models.Layout); err != nil {
			return err
		}
	}

	opts := director.Options{
		Clients:             clients,
		Classifier:          intent.NewClassifier(intentClient),
		Selector:            layouts.NewSelector(catalog, layoutClient),
		Transformer:         transform.NewTransformer(catalog),
		Catalog:             catalog,
		Tracker:             tracker,
		MaxConcurrentSlides: cfg.Content.MaxConcurrentSlides,
	}

	timeout := time.Duration(cfg.Services.TimeoutSeconds) * time.Second
	if cfg.Services.TextServiceURL != "" {
		opts.TextService = textsvc.NewClient(cfg.Services.TextServiceURL, timeout)
	}
	if cfg.Services.DeckBuilderURL != "" {
		opts.Renderer = deckbuilder.NewClient(cfg.Services.DeckBuilderURL, timeout)
	}

	var store *checkpoint.Store
	if cfg.Checkpoint.DBPath != "" {
		store, err = checkpoint.Open(cfg.Checkpoint.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Checkpoints = store
	}

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Addr)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("%v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	usage := &usageReporter{ledger: ledger}
	if cfg.Metrics.PrometheusURL != "" {
		usage.query, err = metrics.NewQueryService(cfg.Metrics.PrometheusURL)
		if err != nil {
			return err
		}
	}

	sess, err := openSession(ctx, store, *resume, logger)
	if err != nil {
		return err
	}

	d := director.New(opts)
	return repl(ctx, d, sess, usage, logger)
}

func openSession(ctx context.Context, store *checkpoint.Store, resumeID string, logger *logx.Logger) (*session.Session, error) {
	if resumeID == "" {
		return session.New(), nil
	}
	if store == nil {
		return nil, errors.New("-resume requires checkpoint.db_path to be configured")
	}
	sess, err := store.LoadLatest(ctx, resumeID)
	if err != nil {
		return nil, err
	}
	logger.Info("resumed session %s at stage %s", sess.ID, sess.CurrentStage)
	return sess, nil
}

// usageReporter prints a session's token usage: the in-process ledger
// always, plus server-side Prometheus aggregates when configured.
type usageReporter struct {
	ledger *llmmetrics.UsageLedger
	query  *metrics.QueryService
}

func (u *usageReporter) Print(ctx context.Context, sessionID string) {
	reports := u.ledger.SessionReports(sessionID)
	if len(reports) == 0 {
		fmt.Println("No model requests recorded for this session yet.")
		return
	}

	fmt.Printf("Token usage for session %s:\n", sessionID)
	for _, r := range reports {
		fmt.Printf("  %-26s %-24s %6d prompt + %6d completion = %6d\n",
			r.Stage, r.Model, r.PromptTokens, r.CompletionTokens, r.Total())
	}
	fmt.Printf("  total: %d tokens over %d requests\n", u.ledger.SessionTotal(sessionID), len(reports))

	if u.query == nil {
		return
	}
	aggregate, err := u.query.GetSessionMetrics(ctx, sessionID)
	if err != nil {
		fmt.Printf("  (prometheus aggregates unavailable: %v)\n", err)
		return
	}
	fmt.Printf("  prometheus: %d prompt + %d completion = %d tokens, %d requests\n",
		aggregate.PromptTokens, aggregate.CompletionTokens, aggregate.TotalTokens, aggregate.Requests)
}

func repl(ctx context.Context, d *director.Director, sess *session.Session, usage *usageReporter, logger *logx.Logger) error {
	fmt.Printf("Deckster ready (session %s). Describe your presentation, type 'usage' for token totals, or 'quit' to exit.\n", sess.ID)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			fmt.Printf("Goodbye. Resume later with -resume %s\n", sess.ID)
			return nil
		case "usage":
			usage.Print(ctx, sess.ID)
			continue
		}

		resp, err := d.HandleMessage(ctx, sess, line)
		if err != nil {
			logger.Error("turn failed: %v", err)
			fmt.Println("Something went wrong with that turn; please try again.")
			continue
		}
		fmt.Printf("\ndeckster> %s\n\n", resp.Message)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("input read failed: %w", err)
	}
	fmt.Printf("Goodbye. Resume later with -resume %s\n", sess.ID)
	return nil
}
