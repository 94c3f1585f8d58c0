package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL      = "http://127.0.0.1:8080"
	authToken    = "change-me"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numDevices   = 5
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== GSD Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n\n", numWorkers, testDuration)

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Phase 1: Seed glucose data with uploads
	fmt.Println("\n--- Phase 1: Seeding data (POST /upload) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doUpload(rng)
	})

	// Phase 2: Mixed read/write load
	fmt.Println("\n--- Phase 2: Mixed load (60% POST, 40% GET) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.60:
			return doUpload(rng)
		case r < 0.75:
			return doGet("/glucose/last")
		case r < 0.85:
			return doGet("/last")
		case r < 0.95:
			return doGet("/current")
		default:
			return doGet("/revision")
		}
	})

	// Phase 3: Read-heavy load, the companion-app polling pattern
	fmt.Println("\n--- Phase 3: Read-heavy load (10% POST, 90% GET) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.10:
			return doUpload(rng)
		case r < 0.40:
			return doGet("/glucose/last")
		case r < 0.65:
			return doGet("/last")
		case r < 0.85:
			return doGet("/current")
		default:
			return doGet("/revision")
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, avg, p50, p95, p99)
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func newRequest(method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doUpload sends a device-style batch: a handful of historic readings plus
// the scans since, like a CGM reader syncing every few minutes.
func doUpload(rng *rand.Rand) result {
	now := time.Now().UTC()
	device := fmt.Sprintf("dev-%d", rng.Intn(numDevices))

	nHistoric := rng.Intn(4) + 1
	nScans := rng.Intn(3)
	records := make([]map[string]interface{}, 0, nHistoric+nScans)
	for i := 0; i < nHistoric; i++ {
		records = append(records, map[string]interface{}{
			"timestamp":   now.Add(-time.Duration(rng.Intn(120)) * time.Minute).Format(time.RFC3339),
			"mgDl":        60 + rng.Intn(180),
			"record_type": "historic",
		})
	}
	for i := 0; i < nScans; i++ {
		records = append(records, map[string]interface{}{
			"timestamp":   now.Add(-time.Duration(rng.Intn(10)) * time.Minute).Format(time.RFC3339),
			"mgDl":        60 + rng.Intn(180),
			"record_type": "scan",
			"model_name":  "G7",
			"device_id":   device,
		})
	}

	body := map[string]interface{}{
		"current-cgm-device-properties": map[string]bool{"has-real-time": true},
		"glucose-records":               records,
	}
	if rng.Float64() < 0.2 {
		body["insulin-records"] = []map[string]interface{}{{
			"id":        fmt.Sprintf("i-%d", rng.Int63()),
			"timestamp": now.Format(time.RFC3339),
			"units":     rng.Intn(12) + 1,
		}}
	}

	data, _ := json.Marshal(body)
	req, err := newRequest(http.MethodPost, "/upload", bytes.NewReader(data))
	if err != nil {
		return result{"POST /upload", 0, 0, true}
	}
	start := time.Now()
	resp, err := httpClient.Do(req)
	lat := time.Since(start)
	if err != nil {
		return result{"POST /upload", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST /upload", resp.StatusCode, lat, resp.StatusCode != 200}
}

func doGet(path string) result {
	endpoint := "GET " + path
	req, err := newRequest(http.MethodGet, path, nil)
	if err != nil {
		return result{endpoint, 0, 0, true}
	}
	start := time.Now()
	resp, err := httpClient.Do(req)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != 200}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}
