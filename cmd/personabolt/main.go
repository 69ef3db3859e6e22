package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/personabolt/personabolt/internal/api"
	"github.com/personabolt/personabolt/internal/genai"
	"github.com/personabolt/personabolt/internal/images"
	"github.com/personabolt/personabolt/internal/util"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Build module options
	genaiOpts := buildGenAIOptions(flags)
	imageOpts := buildImageOptions(flags)
	apiOpts := buildAPIOptions(flags)

	// Start the service
	slog.Info("Bootstrapping PersonaBolt with configured modules")
	slog.Debug("Module options counts", "genai", len(genaiOpts), "images", len(imageOpts), "api", len(apiOpts))
	if err := api.Run(genaiOpts, imageOpts, apiOpts); err != nil {
		slog.Error("PersonaBolt failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("PersonaBolt exited successfully")
}

// Config holds environment configuration
type Config struct {
	OpenAIKey   string
	OpenAIModel string
	UnsplashKey string
	APIAddr     string
}

// Flags holds command line flag values
type Flags struct {
	openaiKey   *string
	openaiModel *string
	unsplashKey *string
	apiAddr     *string
}

// initializeLogger sets up structured logging; debug level via $PERSONABOLT_DEBUG
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("PERSONABOLT_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: os.Getenv("OPENAI_MODEL"),
		UnsplashKey: os.Getenv("UNSPLASH_ACCESS_KEY"),
		APIAddr:     os.Getenv("API_ADDR"),
	}

	slog.Debug("environment variables loaded",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"UNSPLASH_ACCESS_KEY_SET", config.UnsplashKey != "",
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel: flag.String("openai-model", config.OpenAIModel, "OpenAI model for persona and strategy generation (overrides $OPENAI_MODEL)"),
		unsplashKey: flag.String("unsplash-access-key", config.UnsplashKey, "Unsplash access key for portrait search (overrides $UNSPLASH_ACCESS_KEY)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"openaiKeySet", *flags.openaiKey != "",
		"openaiModel", *flags.openaiModel,
		"unsplashKeySet", *flags.unsplashKey != "",
		"apiAddr", *flags.apiAddr)

	return flags
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	return genaiOpts
}

// buildImageOptions constructs image search configuration options
func buildImageOptions(flags Flags) []images.Option {
	var imageOpts []images.Option
	if *flags.unsplashKey != "" {
		imageOpts = append(imageOpts, images.WithAccessKey(*flags.unsplashKey))
	}
	return imageOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
