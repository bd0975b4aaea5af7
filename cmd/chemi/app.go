package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"chemi/internal/agent"
	"chemi/internal/catalog"
	"chemi/internal/domain"
	"chemi/internal/embedding/bm25"
	"chemi/internal/embedding/gemini"
	"chemi/internal/history"
	"chemi/internal/imagesearch"
	"chemi/internal/ingest"
	"chemi/internal/llm"
	"chemi/internal/quiz"
	"chemi/internal/retriever"
	"chemi/internal/tts"
	"chemi/internal/vectorstore/memory"
	"chemi/internal/vectorstore/qdrant"
)

// app is the assembled chatbot: the pipeline plus everything it owns.
type app struct {
	pipeline *agent.Pipeline
	closers  []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}
}

func geminiTimeout() time.Duration {
	return time.Duration(cfg.Gemini.TimeoutSecs) * time.Second
}

func geminiKey() (string, error) {
	key := os.Getenv(cfg.Gemini.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s is not set", cfg.Gemini.APIKeyEnv)
	}
	return key, nil
}

// openCatalog opens the SQLite catalog and seeds it from the JSON file on
// first run.
func openCatalog() (*catalog.Store, error) {
	cat, err := catalog.Open(cfg.Data.DBPath, logger)
	if err != nil {
		return nil, err
	}
	if _, err := cat.Sync(cfg.Data.CatalogFile, cfg.Data.ImagesDir, cfg.Data.AudioDir); err != nil {
		cat.Close()
		return nil, fmt.Errorf("sync catalog: %w", err)
	}
	return cat, nil
}

func buildStore() (domain.VectorStore, error) {
	switch cfg.VectorStore.Type {
	case "memory":
		return memory.NewStore(cfg.Retrieval.DenseWeight, cfg.Retrieval.SparseWeight), nil
	case "qdrant", "":
		q := cfg.VectorStore.Qdrant
		if q == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStore(qdrant.Config{
			URL:            q.URL,
			APIKey:         q.APIKey,
			Collection:     q.Collection,
			Timeout:        time.Duration(q.TimeoutSecs) * time.Second,
			PrefetchFactor: cfg.Retrieval.PrefetchFactor,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}

// buildApp assembles the full pipeline per the config. The memory store is
// process-local, so choosing it triggers an inline ingest at startup.
func buildApp(ctx context.Context) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	key, err := geminiKey()
	if err != nil {
		return nil, err
	}

	cat, err := openCatalog()
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, cat.Close)
	records, err := cat.All()
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("catalog is empty, check %s", cfg.Data.CatalogFile)
	}

	var rtr domain.Retriever
	switch cfg.Retrieval.Mode {
	case "keyword":
		rtr = retriever.NewKeyword(records, cfg.Retrieval.ScoreThreshold, logger)
	case "vector", "":
		embedder, err := gemini.NewEmbedder(ctx, key, cfg.Gemini.EmbedModel, geminiTimeout())
		if err != nil {
			return nil, err
		}
		encoder := bm25.NewEncoder()
		store, err := buildStore()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		if cfg.VectorStore.Type == "memory" {
			if _, err := ingest.New(embedder, encoder, store, logger).Run(ctx, records); err != nil {
				return nil, fmt.Errorf("populate memory store: %w", err)
			}
		} else if err := encoder.Prepare(ingest.Corpus(records)); err != nil {
			return nil, fmt.Errorf("prepare sparse encoder: %w", err)
		}
		rtr = retriever.NewVector(embedder, encoder, store, cfg.Retrieval.ScoreThreshold, logger)
	default:
		return nil, fmt.Errorf("unknown retrieval mode: %s", cfg.Retrieval.Mode)
	}

	llmClient, err := llm.NewClient(ctx, llm.Config{
		APIKey:      key,
		Model:       cfg.Gemini.ChatModel,
		Timeout:     geminiTimeout(),
		Temperature: cfg.Gemini.Temperature,
	}, logger)
	if err != nil {
		return nil, err
	}

	hist, err := history.Open(cfg.Data.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	a.closers = append(a.closers, hist.Close)

	deps := agent.Deps{
		LLM:       llmClient,
		Retriever: rtr,
		History:   hist,
		Quiz:      quiz.NewGenerator(llmClient, logger),
		Images:    imagesearch.NewClient(logger),
		TopK:      cfg.Retrieval.TopK,
		Log:       logger,
	}
	piper, err := tts.NewPiper(cfg.TTS.PiperBin, cfg.TTS.VoiceModel, cfg.TTS.OutputDir,
		time.Duration(cfg.TTS.TimeoutSecs)*time.Second, logger)
	if err != nil {
		logger.Warn("tts disabled", zap.Error(err))
	} else {
		deps.Speaker = piper
	}

	a.pipeline = agent.New(deps)
	ok = true
	return a, nil
}
