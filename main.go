package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"airkosova-scraper/browser"
	"airkosova-scraper/config"
	"airkosova-scraper/models"
	"airkosova-scraper/scraper"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	from := flag.String("from", "", "Departure airport code (runs a single CLI search when set)")
	to := flag.String("to", "", "Destination airport code")
	depDate := flag.String("date", "", "Departure date (YYYY-MM-DD)")
	retDate := flag.String("return", "", "Return date (YYYY-MM-DD), empty for one-way")
	adults := flag.Int("adults", 1, "Number of adult passengers")
	children := flag.Int("children", 0, "Number of child passengers")
	infants := flag.Int("infants", 0, "Number of infant passengers")
	loadtest := flag.Int("loadtest", 0, "Run N identical searches instead of serving (requires -from)")
	concurrency := flag.Int("concurrency", 4, "Parallel searches in loadtest mode")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v\n", err)
	}

	svc := scraper.NewService(cfg, browser.NewManager(cfg, scraper.WarmSelector))

	if *from != "" {
		req := models.SearchRequest{
			Departure:     *from,
			Destination:   *to,
			DepartureDate: *depDate,
			ReturnDate:    *retDate,
			Adults:        *adults,
			Children:      *children,
			Infants:       *infants,
		}
		if *retDate == "" {
			req.TripType = models.TripOneway
		}
		if *loadtest > 0 {
			runLoadtest(svc, req, *loadtest, *concurrency)
		} else {
			runCLISearch(svc, req)
		}
		return
	}

	runServer(cfg, svc)
}

// runCLISearch performs one search and prints the result as JSON.
func runCLISearch(svc *scraper.Service, req models.SearchRequest) {
	defer closeService(svc)

	result, err := svc.Search(context.Background(), req)
	if err != nil {
		log.Fatalf("Search failed: %v\n", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v\n", err)
	}
	fmt.Println(string(out))
}

// runLoadtest fires total identical searches with the given concurrency
// and prints a latency summary. Useful for sizing the pool matrix.
func runLoadtest(svc *scraper.Service, req models.SearchRequest, total, concurrency int) {
	defer closeService(svc)

	if concurrency < 1 {
		concurrency = 1
	}
	log.Printf("[loadtest] %d searches, %d concurrent\n", total, concurrency)

	type outcome struct {
		latency time.Duration
		err     error
	}
	outcomes := make([]outcome, total)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				start := time.Now()
				_, err := svc.Search(context.Background(), req)
				outcomes[i] = outcome{latency: time.Since(start), err: err}
			}
		}()
	}
	start := time.Now()
	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	wall := time.Since(start)

	var latencies []time.Duration
	failed := 0
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			continue
		}
		latencies = append(latencies, o.latency)
	}
	fmt.Printf("total=%d ok=%d failed=%d wall=%s\n", total, len(latencies), failed, wall.Round(time.Millisecond))
	stats, ok := summarize(latencies)
	if !ok {
		return
	}
	fmt.Printf("min=%s mean=%s p50=%s p90=%s p95=%s p99=%s max=%s\n",
		stats.min.Round(time.Millisecond),
		stats.mean.Round(time.Millisecond),
		stats.p50.Round(time.Millisecond),
		stats.p90.Round(time.Millisecond),
		stats.p95.Round(time.Millisecond),
		stats.p99.Round(time.Millisecond),
		stats.max.Round(time.Millisecond))
}

// latencyStats is the load-test summary over successful searches.
type latencyStats struct {
	min, mean, max     time.Duration
	p50, p90, p95, p99 time.Duration
}

// summarize computes nearest-rank percentiles and the mean. It sorts
// latencies in place; ok is false for an empty slice.
func summarize(latencies []time.Duration) (latencyStats, bool) {
	if len(latencies) == 0 {
		return latencyStats{}, false
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	pct := func(p float64) time.Duration {
		idx := int(p * float64(len(latencies)-1))
		return latencies[idx]
	}
	return latencyStats{
		min:  latencies[0],
		mean: sum / time.Duration(len(latencies)),
		max:  latencies[len(latencies)-1],
		p50:  pct(0.50),
		p90:  pct(0.90),
		p95:  pct(0.95),
		p99:  pct(0.99),
	}, true
}

// runServer exposes the scraper over HTTP until SIGINT/SIGTERM.
func runServer(cfg *config.Config, svc *scraper.Service) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", handleSearch(svc))
	mux.HandleFunc("/api/health", handleHealth)
	mux.HandleFunc("/api/pool/status", handlePoolStatus(svc))

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}

	go func() {
		log.Printf("[server] Listening on %s\n", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v\n", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("[server] Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[server] Shutdown error: %v\n", err)
	}
	closeService(svc)
}

func closeService(svc *scraper.Service) {
	if err := svc.Close(); err != nil {
		log.Printf("[server] Error closing browser pool: %v\n", err)
	}
}

func handleSearch(svc *scraper.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST only")
			return
		}
		var req models.SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}

		result, err := svc.Search(r.Context(), req)
		if err != nil {
			var cfgErr *scraper.ConfigError
			if errors.As(err, &cfgErr) {
				writeError(w, http.StatusBadRequest, cfgErr.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": result})
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
}

func handlePoolStatus(svc *scraper.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": svc.PoolStatus()})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[server] Failed to encode response: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
