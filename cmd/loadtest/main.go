// Command loadtest replays queries against a running search service and
// reports throughput, latency percentiles and status codes per search mode.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/searchlab/termindex/internal/searcher/parser"
)

var defaultQueries = []string{
	"futebol clube",
	"rio de janeiro",
	"história do brasil",
	"língua portuguesa",
	"universidade federal",
	"copa do mundo",
	"estado de são paulo",
	"música popular",
}

type target struct {
	mode string
	path string
}

var targets = []target{
	{mode: "bm25", path: "/api/v1/search"},
	{mode: "boolean", path: "/api/v1/boolean"},
}

type modeStats struct {
	requests  atomic.Int64
	errors    atomic.Int64
	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func (s *modeStats) record(d time.Duration, status int, err error) {
	s.requests.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	if status >= http.StatusInternalServerError {
		s.errors.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.codes[status]++
	s.mu.Unlock()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		baseURL     string
		concurrency int
		duration    time.Duration
		queriesPath string
		booleanPct  int
	)
	flagSet := pflag.NewFlagSet("loadtest", pflag.ContinueOnError)
	flagSet.StringVar(&baseURL, "url", "http://localhost:8080", "base URL of the search service")
	flagSet.IntVarP(&concurrency, "concurrency", "c", 10, "number of concurrent workers")
	flagSet.DurationVarP(&duration, "duration", "d", 30*time.Second, "test duration")
	flagSet.StringVarP(&queriesPath, "queries", "q", "", "query file, one query per line (default built-in set)")
	flagSet.IntVar(&booleanPct, "boolean-percent", 20, "share of requests sent to the boolean endpoint")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			fmt.Fprintf(os.Stderr, "Usage: loadtest [flags]\n\nFlags:\n")
			flagSet.PrintDefaults()
			return nil
		}
		return err
	}
	if concurrency < 1 {
		return fmt.Errorf("--concurrency must be positive")
	}
	if booleanPct < 0 || booleanPct > 100 {
		return fmt.Errorf("--boolean-percent must be within [0, 100]")
	}

	queries := defaultQueries
	if queriesPath != "" {
		parsed, err := parser.ParseQueryFile(queriesPath)
		if err != nil {
			return err
		}
		queries = queries[:0:0]
		for _, q := range parsed {
			if len(q) > 0 {
				queries = append(queries, strings.Join(q, " "))
			}
		}
		if len(queries) == 0 {
			return fmt.Errorf("no queries in %s", queriesPath)
		}
	}

	fmt.Println("=== Search Load Test ===")
	fmt.Printf("Target:      %s\n", baseURL)
	fmt.Printf("Concurrency: %d\n", concurrency)
	fmt.Printf("Duration:    %s\n", duration)
	fmt.Printf("Queries:     %d unique\n", len(queries))
	fmt.Println()

	stats := map[string]*modeStats{}
	for _, t := range targets {
		stats[t.mode] = &modeStats{codes: make(map[int]int64)}
	}
	if err := runLoad(baseURL, concurrency, duration, queries, booleanPct, stats); err != nil {
		return err
	}

	var total int64
	for _, t := range targets {
		total += stats[t.mode].requests.Load()
		printReport(t.mode, stats[t.mode], duration)
	}
	if total == 0 {
		return fmt.Errorf("no requests completed, is the service running?")
	}
	return nil
}

func runLoad(baseURL string, concurrency int, duration time.Duration, queries []string, booleanPct int, stats map[string]*modeStats) error {
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				t, q := targets[0], queries[i%len(queries)]
				if i%100 < booleanPct {
					t = targets[1]
					q = strings.Join(strings.Fields(q), " OR ")
				}
				rawURL := fmt.Sprintf("%s%s?q=%s", baseURL, t.path, url.QueryEscape(q))
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
				if err != nil {
					return fmt.Errorf("creating request: %w", err)
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					stats[t.mode].record(elapsed, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats[t.mode].record(elapsed, resp.StatusCode, nil)
			}
			return nil
		})
	}
	return g.Wait()
}

func printReport(mode string, s *modeStats, duration time.Duration) {
	total := s.requests.Load()
	errCount := s.errors.Load()
	fmt.Printf("=== %s ===\n", mode)
	fmt.Printf("Requests:      %d\n", total)
	fmt.Printf("Errors:        %d\n", errCount)
	if total == 0 {
		fmt.Println()
		return
	}
	fmt.Printf("Error Rate:    %.2f%%\n", float64(errCount)/float64(total)*100)
	fmt.Printf("Requests/sec:  %.2f\n", float64(total)/duration.Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	latencies := s.latencies
	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		fmt.Printf("Min:           %s\n", latencies[0])
		fmt.Printf("Avg:           %s\n", sum/time.Duration(len(latencies)))
		fmt.Printf("P50:           %s\n", percentile(latencies, 50))
		fmt.Printf("P95:           %s\n", percentile(latencies, 95))
		fmt.Printf("P99:           %s\n", percentile(latencies, 99))
		fmt.Printf("Max:           %s\n", latencies[len(latencies)-1])
	}

	codes := make([]int, 0, len(s.codes))
	for code := range s.codes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, s.codes[code])
	}
	fmt.Println()
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
