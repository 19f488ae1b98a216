package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"github.com/gcbaptista/go-corpus-engine/api"
	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/internal/engine"
	engerrors "github.com/gcbaptista/go-corpus-engine/internal/errors"
	"github.com/gcbaptista/go-corpus-engine/internal/search"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "corpus_engine",
		Usage: "Index annotated XML corpora and search them with token patterns",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML engine settings file",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory to store indexes and user formats (overrides the settings file)",
			},
			&cli.BoolFlag{
				Name:  "in-memory",
				Usage: "Keep everything in memory; nothing is persisted",
			},
			&cli.StringSliceFlag{
				Name:  "format-dir",
				Usage: "Directory with *.blf.yaml / *.blf.json format files (repeatable)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "port",
						Usage: "Port to run the server on",
						Value: "8080",
					},
					&cli.Int64Flag{
						Name:  "max-body-size",
						Usage: "Maximum request body size in bytes",
						Value: 64 << 20,
					},
				},
			},
			{
				Name:      "validate-format",
				Usage:     "Check format files without loading them into an engine",
				ArgsUsage: "<format file>...",
				Action:    validateFormatCommand,
			},
			{
				Name:      "index",
				Usage:     "Index XML input files",
				ArgsUsage: "<input file>...",
				Action:    indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "index",
						Aliases:  []string{"i"},
						Usage:    "Index to add the documents to",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Format used to create the index when it does not exist",
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search an index and print the hits",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "index",
						Aliases:  []string{"i"},
						Usage:    "Index to search",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Words to find on the main annotation; a trailing '*' matches a prefix",
					},
					&cli.StringFlag{
						Name:  "pattern",
						Usage: "Pattern in its JSON form",
					},
					&cli.StringFlag{
						Name:  "sensitivity",
						Usage: "Match sensitivity (sensitive, insensitive, case_insensitive, diacritics_insensitive)",
						Value: "insensitive",
					},
					&cli.StringFlag{
						Name:  "group",
						Usage: "Group hits by a hit property, e.g. doc:year",
					},
					&cli.BoolFlag{
						Name:  "count",
						Usage: "Only print the number of hits and documents",
					},
					&cli.IntFlag{
						Name:    "number",
						Aliases: []string{"n"},
						Usage:   "Maximum number of hits to print (0 prints all)",
						Value:   20,
					},
					&cli.IntFlag{
						Name:  "context",
						Usage: "Tokens of context on each side of a hit",
						Value: 5,
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// engineSettings reads the settings file, when given, and applies the command line overrides
func engineSettings(c *cli.Context) (config.EngineSettings, error) {
	settings := config.DefaultEngineSettings()
	if path := c.String("config"); path != "" {
		var err error
		if settings, err = config.LoadEngineSettings(path); err != nil {
			return settings, err
		}
	}
	if dir := c.String("data-dir"); dir != "" {
		settings.DataDir = dir
	}
	if c.Bool("in-memory") {
		settings.InMemory = true
	}
	settings.FormatDirs = append(settings.FormatDirs, c.StringSlice("format-dir")...)
	return settings, nil
}

func openEngine(c *cli.Context) (*engine.Engine, error) {
	settings, err := engineSettings(c)
	if err != nil {
		return nil, err
	}
	return engine.New(settings, engine.WithLogger(slog.Default()))
}

func serveCommand(c *cli.Context) error {
	eng, err := openEngine(c)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			slog.Error("Failed to close engine", "error", err)
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		api.RequestIDMiddleware(),
		api.LoggingMiddleware(slog.Default()),
		api.CORSMiddleware(),
		api.RequestSizeLimitMiddleware(c.Int64("max-body-size")),
	)
	api.SetupRoutes(router, eng)

	server := &http.Server{
		Addr:              ":" + c.String("port"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", server.Addr, "data_dir", eng.Settings().DataDir)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func validateFormatCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one format file is required")
	}
	var failed int
	for _, path := range c.Args().Slice() {
		format, err := config.LoadFormatFile(path)
		if err != nil {
			failed++
			fmt.Fprintf(c.App.Writer, "INVALID %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(c.App.Writer, "OK      %s (format '%s', %d annotated field(s), %d metadata field(s))\n",
			path, format.Name, len(format.AnnotatedFields), len(format.MetadataFields))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d format file(s) are invalid", failed, c.NArg())
	}
	return nil
}

func indexCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one input file is required")
	}
	eng, err := openEngine(c)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	indexName := c.String("index")
	if _, err := eng.Index(indexName); errors.Is(err, engerrors.ErrIndexNotFound) {
		formatName := c.String("format")
		if formatName == "" {
			return fmt.Errorf("index '%s' does not exist; pass --format to create it", indexName)
		}
		if err := eng.CreateIndex(indexName, formatName); err != nil {
			return err
		}
		slog.Info("Created index", "index", indexName, "format", formatName)
	}

	for _, path := range c.Args().Slice() {
		input, err := os.ReadFile(path) // #nosec G304 -- paths come from the operator
		if err != nil {
			return fmt.Errorf("failed to read input %s: %w", path, err)
		}
		result, err := eng.IndexDocuments(c.Context, indexName, input)
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", path, err)
		}
		fmt.Fprintf(c.App.Writer, "%s: %d document(s) indexed, %d failed in %s\n",
			path, result.Indexed, result.Failed, result.Duration.Round(time.Millisecond))
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	eng, err := openEngine(c)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	req, err := searchRequest(c)
	if err != nil {
		return err
	}
	if req.Settings, err = cliHitsSettings(c, eng); err != nil {
		return err
	}

	result, err := eng.Search(c.Context, c.String("index"), req)
	if err != nil {
		return err
	}
	printResult(c, result)
	return nil
}

func searchRequest(c *cli.Context) (search.Request, error) {
	var req search.Request
	var err error

	switch {
	case c.String("pattern") != "":
		if req.Pattern, err = search.ParsePattern([]byte(c.String("pattern"))); err != nil {
			return req, err
		}
	case c.String("query") != "":
		req.Pattern = search.SimplePattern(c.String("query"))
	default:
		return req, fmt.Errorf("either --query or --pattern is required")
	}

	if req.Sensitivity, err = index.ParseMatchSensitivity(c.String("sensitivity")); err != nil {
		return req, err
	}
	if g := c.String("group"); g != "" {
		if req.Group, err = search.ParseHitProperty(g); err != nil {
			return req, err
		}
	}
	req.Count = c.Bool("count")
	req.Number = c.Int("number")
	req.Concordances = req.Group == nil && !req.Count
	return req, nil
}

func cliHitsSettings(c *cli.Context, eng *engine.Engine) (*search.HitsSettings, error) {
	idx, err := eng.Index(c.String("index"))
	if err != nil {
		return nil, err
	}
	settings := search.NewHitsSettings(idx)
	settings.ContextSize = c.Int("context")
	return settings, settings.Validate()
}

func printResult(c *cli.Context, result search.Result) {
	w := c.App.Writer
	switch r := result.(type) {
	case *search.ConcordancesResult:
		for _, conc := range r.Concordances {
			fmt.Fprintf(w, "%s\t%s [%s] %s\n", conc.PID, conc.Left, conc.Match, conc.Right)
		}
	case *search.GroupsResult:
		for _, g := range r.Groups {
			fmt.Fprintf(w, "%s\t%d\n", g.Identity, g.Size)
		}
	case *search.CountResult:
		fmt.Fprintf(w, "%d hit(s) in %d document(s)\n", r.Hits, r.Docs)
	case *search.HitsResult:
		fmt.Fprintf(w, "%d hit(s)\n", len(r.Hits))
	}
}
