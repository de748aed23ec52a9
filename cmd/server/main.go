package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"fakenews/internal/api"
	"fakenews/internal/article"
	"fakenews/internal/breaker"
	"fakenews/internal/cache"
	"fakenews/internal/classifier"
	"fakenews/internal/config"
	"fakenews/internal/credential"
	"fakenews/internal/db"
	"fakenews/internal/detection"
	"fakenews/internal/detector"
	"fakenews/internal/explain"
	"fakenews/internal/llm"
	redisdb "fakenews/internal/redis"
	"fakenews/internal/secrets"
)

func main() {
	configPath := "config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.LoadEnv(); err != nil {
		log.Printf("[Main] WARNING: %v", err)
	}
	if err := db.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}

	rdb, err := redisdb.Connect(context.Background(), cfg, 5*time.Second)
	if err != nil {
		log.Printf("[Main] WARNING: Redis unavailable, sessions and explanation cache disabled: %v", err)
	}

	store := secrets.NewFileStore(cfg.Secrets.Path)
	explainer := explain.NewGroqService(
		credential.NewResolver(explain.CredentialKey, store),
		cfg.Groq.Model,
		llm.OptionsFromConfig(cfg.Groq),
	)
	cls := classifier.NewClient(
		cfg.HuggingFace.BaseURL,
		cfg.HuggingFace.Model,
		credential.NewResolver(classifier.TokenKey, store),
		time.Duration(cfg.HuggingFace.TimeoutSeconds)*time.Second,
	).WithBreaker(breaker.New(
		"huggingface",
		cfg.HuggingFace.BreakerThreshold,
		time.Duration(cfg.HuggingFace.BreakerCooldownSeconds)*time.Second,
	))
	fetcher := article.NewFetcher(
		time.Duration(cfg.Article.TimeoutSeconds)*time.Second,
		cfg.Article.UserAgent,
		cfg.Article.MaxSizeMB,
	)
	repo := detection.NewRepository(db.DB)

	var explanations detector.ExplanationCache
	if cfg.Cache.Enabled && rdb != nil {
		explanations = cache.New(rdb, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
		log.Printf("[Main] Explanation cache enabled (ttl %d min)", cfg.Cache.TTLMinutes)
	}

	d := detector.New(cls, explainer, repo, fetcher, explanations)

	r := api.SetupRouter(cfg, rdb, api.Deps{
		Detector:   d,
		Explainer:  explainer,
		Detections: repo,
	})
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("[Main] Starting server on %s%s (model %s)", addr, cfg.Server.Subpath, explainer.ModelName())
	if err := r.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
