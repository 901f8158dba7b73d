// File: src/trade-verify.go

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradesafe/tradeverify/src/ai/core"
	_ "github.com/tradesafe/tradeverify/src/ai/providers"
	"github.com/tradesafe/tradeverify/src/cache"
	"github.com/tradesafe/tradeverify/src/collector"
	"github.com/tradesafe/tradeverify/src/config"
	"github.com/tradesafe/tradeverify/src/data"
	"github.com/tradesafe/tradeverify/src/registry"
	"github.com/tradesafe/tradeverify/src/sanctions"
	"github.com/tradesafe/tradeverify/src/verification"
	"github.com/tradesafe/tradeverify/src/webclient"
	"github.com/tradesafe/tradeverify/src/webserver"
	"github.com/tradesafe/tradeverify/src/website"
)

// searchQuotaPerDay bounds calls to the rate-limited search backend.
const searchQuotaPerDay = 100

func main() {
	dsn, err := data.GetMySQLDSN()
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	db := data.MustMySQL(dsn)
	if err := data.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	cfg := config.Load(db)
	rdb := data.MustRedis(cfg.RedisURL)

	// Reference lists load lazily on first screen; construct them once and
	// share read-only across all requests.
	screener := sanctions.NewScreener(
		sanctions.NewList(sanctions.ListSDN, sanctions.SDNLoader(cfg.SDNListPath)),
		sanctions.NewList(sanctions.ListConsolidated, sanctions.ConsolidatedLoader(cfg.ConsolidatedListPath)),
	)
	reg := registry.New(cfg.TickersPath)

	httpClient := webclient.NewDefault(cfg.WebsiteTimeout)
	var searcher website.Searcher
	if tavily := website.NewTavilyClient(cfg.SearchAPIKey, cache.NewSearchQuota(rdb, searchQuotaPerDay)); tavily != nil {
		searcher = tavily
	} else {
		log.Printf("search backend not configured; discovery runs without the fallback strategy")
	}
	resolver := website.NewResolver(httpClient, searcher)
	fetcher := website.NewFetcher(httpClient)

	coll := collector.New(resolver, fetcher, reg, screener, collector.Timeouts{
		Website:   cfg.WebsiteTimeout,
		Registry:  cfg.RegistryTimeout,
		Sanctions: cfg.SanctionsTimeout,
	})

	var oracle verification.NarrativeOracle
	systemPrompt := cfg.AI.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = verification.DefaultSystemPrompt
	}
	aiClient, err := core.NewClient(core.FactoryConfig{
		Provider:     cfg.AI.Provider,
		Model:        cfg.AI.Model,
		SystemPrompt: systemPrompt,
		OpenAIKey:    cfg.AI.OpenAIKey,
		ClaudeKey:    cfg.AI.ClaudeKey,
	})
	if err != nil {
		log.Printf("oracle not configured: %v (narratives disabled)", err)
	} else {
		oracle = verification.NewOracle(aiClient, cfg.OracleTimeout)
	}

	store := verification.NewStore(db)
	svc := verification.NewService(store, coll, oracle)
	records := cache.NewRecords(rdb, 24*time.Hour)

	router := webserver.New(svc, store, records)
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("TradeVerify API listening on %s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Printf("TradeVerify API stopped")
}
