package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/antigravity/decision-support/config"
	"github.com/antigravity/decision-support/ingest"
	"github.com/antigravity/decision-support/memory"
	embcache "github.com/antigravity/decision-support/memory/embedder/cache"
	embmock "github.com/antigravity/decision-support/memory/embedder/mock"
	embopenai "github.com/antigravity/decision-support/memory/embedder/openai"
	"github.com/antigravity/decision-support/memory/store/chromem"
	"github.com/antigravity/decision-support/reason"
	genanthropic "github.com/antigravity/decision-support/reason/generator/anthropic"
	genmock "github.com/antigravity/decision-support/reason/generator/mock"
	"github.com/antigravity/decision-support/retrieval"
	"github.com/antigravity/decision-support/server"
	"github.com/antigravity/decision-support/support"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("[MAIN] no .env file, using environment as is")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[MAIN] load config: %v", err)
	}

	store, err := chromem.New(chromem.Config{
		Collection:  cfg.Store.Collection,
		PersistPath: cfg.Store.PersistPath,
	})
	if err != nil {
		log.Fatalf("[MAIN] init store: %v", err)
	}
	defer store.Close()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		log.Fatalf("[MAIN] init embedder: %v", err)
	}
	log.Printf("[MAIN] embedder=%s dims=%d generator=%s",
		cfg.Embedder.Provider, embedder.Dimensions(), cfg.Generator.Provider)

	pipeline := ingest.New(store, embedder, ingest.Config{
		MaxRawTextBytes:   cfg.Ingest.MaxRawTextBytes,
		SentencesPerChunk: cfg.Ingest.SentencesPerChunk,
		OverlapSentences:  cfg.Ingest.OverlapSentences,
		Workers:           cfg.Ingest.Workers,
	})
	retriever := retrieval.New(store, embedder, retrieval.Config{})

	synthesizer := reason.New(buildGenerator(cfg), reason.Config{
		MinSimilarity: cfg.Support.MinSimilarity,
	})
	service := support.New(retriever, synthesizer, support.Config{
		TopK:     cfg.Support.TopK,
		Deadline: time.Duration(cfg.Support.DeadlineSecs) * time.Second,
	})

	srv := server.New(pipeline, retriever, service)
	log.Printf("[MAIN] listening on %s", cfg.Addr)
	if err := srv.Router().Run(cfg.Addr); err != nil {
		log.Fatalf("[MAIN] server: %v", err)
	}
}

// buildEmbedder selects the embedding gateway and wraps it with the vector
// cache when one is configured.
func buildEmbedder(cfg *config.AppConfig) (memory.Embedder, error) {
	var inner memory.Embedder
	var err error

	switch cfg.Embedder.Provider {
	case "openai":
		inner = embopenai.New(embopenai.Config{
			BaseURL:    cfg.Embedder.OpenAI.BaseURL,
			APIKey:     os.Getenv(cfg.Embedder.OpenAI.APIKeyEnv),
			Model:      cfg.Embedder.OpenAI.Model,
			Dimensions: cfg.Embedder.OpenAI.Dimensions,
			Timeout:    time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
	case "onnx":
		inner, err = buildONNXEmbedder(cfg)
		if err != nil {
			return nil, err
		}
	default:
		inner = embmock.New()
	}

	if cfg.Embedder.CacheSize > 0 {
		return embcache.New(inner, int64(cfg.Embedder.CacheSize))
	}
	return inner, nil
}

func buildGenerator(cfg *config.AppConfig) reason.Generator {
	if cfg.Generator.Provider == "anthropic" {
		return genanthropic.New(func(o *genanthropic.Options) {
			o.Model = anthropicsdk.Model(cfg.Generator.Model)
			o.MaxTokens = int64(cfg.Generator.MaxTokens)
			o.APIKey = os.Getenv(cfg.Generator.APIKeyEnv)
		})
	}
	return genmock.New()
}
