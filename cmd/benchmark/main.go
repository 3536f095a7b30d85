// Command benchmark measures the effect of the response cache and request
// coalescing against the live MAST and ExoMAST services.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/olgasafonova/mast-mcp-server/internal/base"
	"github.com/olgasafonova/mast-mcp-server/internal/config"
	"github.com/olgasafonova/mast-mcp-server/internal/exomast"
	"github.com/olgasafonova/mast-mcp-server/internal/infra"
	"github.com/olgasafonova/mast-mcp-server/internal/mast"
)

func clientOptions(cfg *config.Config) []base.ClientOption {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return []base.ClientOption{
		base.WithLogger(logger),
		base.WithCache(infra.NewCache(cfg.CacheSize, ttl)),
		base.WithTimeout(cfg.Timeout),
	}
}

// measureCachePerformance times a repeated metadata lookup
func measureCachePerformance(ctx context.Context, cfg *config.Config) {
	client := mast.NewClient(cfg.MASTURL, clientOptions(cfg)...)
	defer client.Close()

	fmt.Println("=== Cache Performance Test ===")
	fmt.Println()
	fmt.Println("1. Metadata (column configuration) lookup:")

	start := time.Now()
	if _, err := client.Metadata(ctx, "observations"); err != nil {
		fmt.Printf("   Error: %v\n", err)
		return
	}
	firstCall := time.Since(start)
	fmt.Printf("   First call (network):  %v\n", firstCall)

	start = time.Now()
	_, _ = client.Metadata(ctx, "observations")
	secondCall := time.Since(start)
	fmt.Printf("   Second call (cached):  %v\n", secondCall)
	if secondCall > 0 {
		fmt.Printf("   Speedup: %.0fx faster\n", float64(firstCall)/float64(secondCall))
	}
	fmt.Println()

	fmt.Println("2. Mission list (histogram query, baseline):")
	start = time.Now()
	missions, err := client.ListMissions(ctx)
	if err != nil {
		fmt.Printf("   Error: %v\n", err)
		return
	}
	fmt.Printf("   %d missions in %v\n", len(missions), time.Since(start))
	fmt.Println()
}

// measureCoalescing fires identical concurrent requests at ExoMAST
func measureCoalescing(ctx context.Context, cfg *config.Config) {
	const callers = 10
	client := exomast.NewClient(cfg.ExoMASTURL, clientOptions(cfg)...)
	defer client.Close()

	fmt.Println("=== Request Coalescing ===")
	fmt.Println()
	fmt.Printf("3. %d concurrent identifier lookups for the same planet:\n", callers)

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	start := time.Now()
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Identifiers(ctx, "HD 209458 b"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		failed++
		fmt.Printf("   Error: %v\n", err)
	}
	fmt.Printf("   Wall time: %v (%d failed)\n", time.Since(start), failed)
	fmt.Printf("   Circuit breaker: %+v\n", client.BreakerStats())
	fmt.Println()
}

func main() {
	fmt.Println("MAST MCP Server - Performance Measurements")
	fmt.Println("==========================================")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	measureCachePerformance(ctx, cfg)
	measureCoalescing(ctx, cfg)

	fmt.Println("=== Summary ===")
	fmt.Println()
	fmt.Println("• Caching: repeated metadata and ExoMAST lookups are served from memory")
	fmt.Println("• Coalescing: identical in-flight requests share one upstream call")
}
