// Package main is the kioku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/ask"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/ingest"
	"github.com/hyperjump/kioku/internal/llm"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/search"
	"github.com/hyperjump/kioku/internal/server"
	"github.com/hyperjump/kioku/internal/store"
	"github.com/hyperjump/kioku/internal/store/ledger"
	"github.com/hyperjump/kioku/internal/store/memory"
	"github.com/hyperjump/kioku/internal/store/sqlite"
	"github.com/hyperjump/kioku/internal/watcher"
	"github.com/hyperjump/kioku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kioku/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// .env carries EMBEDDING_API_ENDPOINT and the chat API key in development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "insert":
		runInsert(false)
	case "insert-pdf":
		runInsert(true)
	case "search":
		runSearch()
	case "ask":
		runAsk()
	case "tagged-embeddings":
		runTaggedEmbeddings()
	case "version", "--version", "-v":
		fmt.Printf("kioku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file events, store operations, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var watchSvc *watcher.Watcher
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		ingestor := components.Ingestor
		watchSvc = watcher.NewWatcher(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			func(path string) {
				tag, n, err := ingestFile(context.Background(), ingestor, "", path)
				if err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
					return
				}
				logger.Info("document ingested",
					zap.String("path", path),
					zap.String("tag", tag),
					zap.Int("records", n))
			},
			watchOpts...,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Store,
		components.Engine,
		components.Encoder,
		components.Ingestor,
		components.Asker,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// ingestFile routes a file to the right ingest method by extension. An empty
// tag lets the ingestor derive one from the file name.
func ingestFile(ctx context.Context, ingestor *ingest.Ingestor, tag, path string) (string, int, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return ingestor.InsertPDFFile(ctx, tag, path)
	}
	return ingestor.InsertMarkdownFile(ctx, tag, path)
}

func runInsert(pdf bool) {
	name := "insert"
	if pdf {
		name = "insert-pdf"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	tag := fs.String("tag", "", "tag to store the document under (default: derived from file name)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Printf("Usage: kioku %s [flags] <file>\n", name)
		os.Exit(1)
	}
	path := fs.Arg(0)

	components, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()

	ctx := context.Background()
	var resolvedTag string
	var n int
	var err error
	if pdf {
		resolvedTag, n, err = components.Ingestor.InsertPDFFile(ctx, *tag, path)
	} else {
		resolvedTag, n, err = components.Ingestor.InsertMarkdownFile(ctx, *tag, path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Insert failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Inserted %d record(s) under tag %s\n", n, resolvedTag)
}

// buildQuery joins all positional args with spaces so multi-word queries work
// the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// queryArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so "kioku search query -top-k 3"
// would otherwise leave -top-k unparsed.
func queryArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	searchArgs := queryArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use the local store directly)")
	topK := fs.Int("top-k", 0, "number of tags to return (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	var results []models.ScoredResult
	if *serverURL != "" {
		res, err := searchViaHTTP(*serverURL, queryStr, *topK)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		results = res
	} else {
		components, logger := mustInitialize(*configPath)
		defer components.Close()
		defer logger.Sync()

		ctx := context.Background()
		queryVectors, err := components.Encoder.EncodeQuery(ctx, queryStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Encode query failed: %v\n", err)
			os.Exit(1)
		}
		k := *topK
		if k <= 0 {
			k = components.Config.Search.TopK
		}
		results, err = components.Engine.Search(ctx, queryVectors, k)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		if len(results) == 0 {
			fmt.Println("No results.")
			return
		}
		for i, r := range results {
			fmt.Printf("%2d. %-40s %.4f\n", i+1, utils.Truncate(r.Tag, 40), r.Score)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kioku search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  kioku search vector databases
  kioku search "vector databases"          # same as above
  kioku search --top-k 3 recipe ideas
  kioku search --output json your query    # structured JSON for other apps
  kioku search --server http://localhost:8484 your query
`)
}

func searchViaHTTP(serverURL, query string, topK int) ([]models.ScoredResult, error) {
	body, err := json.Marshal(map[string]any{"query": query, "top_k": topK})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response struct {
		Results []models.ScoredResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return response.Results, nil
}

func runAsk() {
	askArgs := queryArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("top-k", 0, "number of memories to include in the prompt (0 = config default)")
	language := fs.String("language", "", "answer language code, e.g. en, ja (empty = config default)")
	showPrompt := fs.Bool("show-prompt", false, "print the assembled prompt before the answer")
	_ = fs.Parse(askArgs)

	queryStr := buildQuery(fs.Args())
	if queryStr == "" {
		fmt.Println("Usage: kioku ask [flags] <question>")
		os.Exit(1)
	}

	components, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()

	if components.Asker == nil {
		fmt.Fprintf(os.Stderr, "Ask is not configured: set %s (or ask.api_key_env in config)\n",
			components.Config.Ask.APIKeyEnv)
		os.Exit(1)
	}

	k := *topK
	if k <= 0 {
		k = components.Config.Ask.TopK
	}
	lang := *language
	if lang == "" {
		lang = components.Config.Ask.Language
	}
	prompt, answer, err := components.Asker.Ask(context.Background(), queryStr, k, lang)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if *showPrompt {
		fmt.Println(prompt)
		fmt.Println("---")
	}
	if answer == "" {
		fmt.Println("No stored memories matched the question.")
		return
	}
	fmt.Println(answer)
}

func runTaggedEmbeddings() {
	fs := flag.NewFlagSet("tagged-embeddings", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kioku tagged-embeddings [flags] <tag>")
		os.Exit(1)
	}
	tag := fs.Arg(0)

	components, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()

	bag, err := components.Store.FetchByTag(context.Background(), tag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fetch failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(map[string]any{"tag": tag, "embeddings": bag}); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		dims := 0
		if len(bag) > 0 {
			dims = len(bag[0])
		}
		fmt.Printf("tag:        %s\n", tag)
		fmt.Printf("embeddings: %d\n", len(bag))
		fmt.Printf("dimensions: %d\n", dims)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Config   *config.Config
	Store    store.Store
	Encoder  embedding.Encoder
	Engine   *search.Engine
	Ingestor *ingest.Ingestor
	Asker    *ask.Asker

	closers []io.Closer
}

func (c *Components) Close() {
	for _, cl := range c.closers {
		_ = cl.Close()
	}
}

func mustInitialize(configPath string) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return components, logger
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Config: cfg}

	switch cfg.Store.Type {
	case "memory":
		s, err := memory.NewStore(cfg.Embedding.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize memory store: %w", err)
		}
		c.Store = s
	case "ledger":
		c.Store = ledger.NewClient(ledger.Config{BaseURL: cfg.Store.LedgerURL})
	case "sqlite", "":
		s, err := sqlite.NewStore(cfg.Store.DatabasePath, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite store: %w", err)
		}
		c.Store = s
		c.closers = append(c.closers, s)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}

	var encoder embedding.Encoder
	remote, err := embedding.NewRemoteEncoder(embedding.RemoteConfig{
		BaseURL:    cfg.Embedding.Endpoint,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		// No embedding API reachable from config or environment. The mock
		// keeps local development working without one.
		logger.Warn("embedding API not configured, using mock encoder", zap.Error(err))
		encoder = embedding.NewMockEncoder(cfg.Embedding.Dimensions)
	} else {
		encoder = remote
	}
	c.Encoder = embedding.NewCachingEncoder(encoder, cfg.Embedding.CacheSize)

	c.Engine = search.NewEngine(c.Store, cfg.Search.PerVectorLimit)
	c.Ingestor = ingest.NewIngestor(c.Engine, c.Encoder)

	if apiKey := os.Getenv(cfg.Ask.APIKeyEnv); apiKey != "" {
		chat, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  apiKey,
			BaseURL: cfg.Ask.BaseURL,
			Model:   cfg.Ask.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize chat client: %w", err)
		}
		c.Asker = ask.NewAsker(c.Store, c.Encoder, chat)
	}

	return c, nil
}

func printUsage() {
	fmt.Println(`kioku - Tagged multi-vector memory with late-interaction retrieval

Usage:
  kioku server [flags]                    Start the HTTP server
  kioku insert [flags] <file>             Insert a markdown document
  kioku insert-pdf [flags] <file>         Insert a PDF document
  kioku search [flags] <query>            Rank stored tags against a query
  kioku ask [flags] <question>            Answer a question from stored memories
  kioku tagged-embeddings [flags] <tag>   Show the embedding bag for a tag
  kioku version                           Show version
  kioku help                              Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kioku/config.yaml)
  --debug            Enable debug logging (file events, store operations, etc.)

Insert Flags:
  --config string    Config file path
  --tag string       Tag to store the document under (default: derived from file name)

Search Flags:
  --config string    Config file path
  --server string    Server URL (empty = use the local store directly)
  --top-k int        Number of tags to return (0 = config default)
  --output string    Output format: text or json (default: text)

Ask Flags:
  --config string    Config file path
  --top-k int        Number of memories to include in the prompt
  --language string  Answer language code, e.g. en, ja
  --show-prompt      Print the assembled prompt before the answer

Examples:
  kioku server
  kioku insert --tag recipes notes/curry.md
  kioku search "weeknight curry"
  kioku search --output json your query
  kioku ask what did I plan to cook this week
  kioku tagged-embeddings recipes`)
}
