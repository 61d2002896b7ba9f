package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	members     int
	books       int
)

// Metrics
var (
	totalRequests uint64
	borrowed      uint64 // 201 Created
	returned      uint64 // 200 OK on return
	rejected      uint64 // 400 business rule rejections
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
	flag.IntVar(&members, "members", 200, "Number of seeded members")
	flag.IntVar(&books, "books", 500, "Number of seeded books")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

// worker alternates borrow and return: each successful checkout is
// immediately returned so the shelf does not drain over a long run.
func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		memberID, bookID := pickPair()

		payload := map[string]interface{}{
			"memberId": memberID,
			"bookId":   bookID,
		}
		body, _ := json.Marshal(payload)

		resp, err := client.Post(targetURL+"/api/circulation/borrow", "application/json", bytes.NewBuffer(body))
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}
		atomic.AddUint64(&totalRequests, 1)

		switch resp.StatusCode {
		case 201:
			atomic.AddUint64(&borrowed, 1)
			var result struct {
				Loan struct {
					ID int64 `json:"id"`
				} `json:"loan"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.Loan.ID != 0 {
				returnLoan(client, result.Loan.ID)
			}
		case 400:
			atomic.AddUint64(&rejected, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func returnLoan(client *http.Client, loanID int64) {
	req, _ := http.NewRequest("PUT", fmt.Sprintf("%s/api/circulation/return/%d", targetURL, loanID), nil)
	resp, err := client.Do(req)
	if err != nil {
		atomic.AddUint64(&failOther, 1)
		return
	}
	atomic.AddUint64(&totalRequests, 1)
	if resp.StatusCode == 200 {
		atomic.AddUint64(&returned, 1)
	} else {
		atomic.AddUint64(&failOther, 1)
	}
	resp.Body.Close()
}

func pickPair() (int64, int64) {
	if workload == "hotspot" {
		// Hotspot: 90% of traffic fights over the first two titles
		if rand.Float32() < 0.90 {
			return int64(rand.Intn(members) + 1), int64(rand.Intn(2) + 1)
		}
	}
	return int64(rand.Intn(members) + 1), int64(rand.Intn(books) + 1)
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	b := atomic.LoadUint64(&borrowed)
	ret := atomic.LoadUint64(&returned)
	rej := atomic.LoadUint64(&rejected)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	rejectRate := float64(rej) / float64(total) * 100

	results := map[string]interface{}{
		"workload":        workload,
		"duration_sec":    d.Seconds(),
		"total_requests":  total,
		"throughput_tps":  tps,
		"borrowed":        b,
		"returned":        ret,
		"rejected":        rej,
		"reject_rate_pct": rejectRate,
		"errors":          fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
