package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/receiptpal/receiptpal/internal/assistant"
	"github.com/receiptpal/receiptpal/internal/identity"
	"github.com/receiptpal/receiptpal/internal/server"
	"github.com/receiptpal/receiptpal/internal/store"
	"github.com/receiptpal/receiptpal/internal/wallet"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// Load .env if present; flags and real env vars still win
	godotenv.Load()

	fs := ff.NewFlagSet("receiptpal")
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		dbPath       = fs.StringLong("db", "receiptpal.db", "Database file path")
		storagePath  = fs.StringLong("storage", "./receipts", "Storage directory for receipt images")
		providerType = fs.StringLong("provider", "gemini", "LLM provider: 'gemini', 'ollama' or 'openai'")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", "llava", "Ollama model name (must support vision, e.g. llava, qwen2-vl)")
		openaiKey    = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openaiURL    = fs.StringLong("openai-url", "", "OpenAI-compatible API base URL (optional)")
		openaiModel  = fs.StringLong("openai-model", "", "OpenAI model name")
		walletIssuer = fs.StringLong("wallet-issuer-id", "", "Google Wallet issuer ID (pass creation disabled if unset)")
		walletCreds  = fs.StringLong("wallet-credentials", "", "Path to the Google Wallet service-account JSON key")
		walletOrigin = fs.StringLong("wallet-origin", "http://localhost:8080", "Web origin allowed to render the save-to-wallet button")
		searchKey    = fs.StringLong("search-key", "", "Google Custom Search API key (price search disabled if unset)")
		searchCX     = fs.StringLong("search-cx", "", "Google Custom Search engine ID")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPTPAL"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx := context.Background()

	// Initialize database
	slog.Info("Initializing database...")
	db, err := store.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize LLM provider
	var llm assistant.Provider
	switch *providerType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini provider...", "model", *geminiModel)
		llm, err = assistant.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama provider...", "url", *ollamaURL, "model", *ollamaModel)
		llm, err = assistant.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	case "openai":
		apiKey := *openaiKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		slog.Info("Initializing OpenAI provider...", "model", *openaiModel)
		llm, err = assistant.NewOpenAI(apiKey, *openaiURL, *openaiModel)
		if err != nil {
			slog.Error("Failed to initialize OpenAI", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid provider type", "type", *providerType, "valid", "gemini, ollama or openai")
		os.Exit(1)
	}
	defer llm.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	files, err := store.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	service := assistant.NewService(db, llm, files)
	if *searchKey != "" && *searchCX != "" {
		searcher, err := assistant.NewCustomSearcher(ctx, *searchKey, *searchCX)
		if err != nil {
			slog.Error("Failed to initialize price search", "error", err)
			os.Exit(1)
		}
		service.EnablePriceSearch(searcher, assistant.NewIPLocator())
		slog.Info("Price search enabled")
	} else {
		slog.Info("Price search disabled (no search credentials)")
	}

	// Initialize wallet issuer
	var issuer server.PassIssuer
	if *walletIssuer != "" && *walletCreds != "" {
		w, err := wallet.NewIssuer(ctx, *walletIssuer, *walletCreds, []string{*walletOrigin})
		if err != nil {
			slog.Error("Failed to initialize wallet issuer", "error", err)
			os.Exit(1)
		}
		issuer = w
		slog.Info("Wallet pass creation enabled", "issuer_id", *walletIssuer)
	} else {
		slog.Info("Wallet pass creation disabled (no issuer credentials)")
	}

	// Initialize server
	basicAuth := server.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	srv := server.NewServer(service, issuer, identity.ConfigFromEnv(), basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := srv.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
