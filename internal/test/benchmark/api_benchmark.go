package benchmark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// APIBenchmark 并发压测 HTTP 接口
type APIBenchmark struct {
	BaseURL     string
	Concurrency int
	Requests    int
	AuthToken   string
	Client      *http.Client
}

// BenchmarkResult 压测结果
type BenchmarkResult struct {
	URL            string        `json:"url"`
	Method         string        `json:"method"`
	Concurrency    int           `json:"concurrency"`
	TotalRequests  int           `json:"total_requests"`
	SuccessCount   int           `json:"success_count"`
	FailureCount   int           `json:"failure_count"`
	TotalTime      time.Duration `json:"total_time"`
	AverageTime    time.Duration `json:"average_time"`
	MinTime        time.Duration `json:"min_time"`
	MaxTime        time.Duration `json:"max_time"`
	RequestsPerSec float64       `json:"requests_per_sec"`
	StatusCodes    map[int]int   `json:"status_codes"`
	Errors         []string      `json:"errors"`
}

// RequestResult 单个请求的结果
type RequestResult struct {
	Duration   time.Duration
	StatusCode int
	Error      error
}

// PayloadFunc 按请求序号生成请求体，nil 表示无请求体
type PayloadFunc func(i int) interface{}

// NewAPIBenchmark 创建压测实例
func NewAPIBenchmark(baseURL string, concurrency, requests int, authToken string) *APIBenchmark {
	return &APIBenchmark{
		BaseURL:     baseURL,
		Concurrency: concurrency,
		Requests:    requests,
		AuthToken:   authToken,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// RunGET 执行GET压测
func (b *APIBenchmark) RunGET(path string) *BenchmarkResult {
	return b.run(http.MethodGet, b.BaseURL+path, nil)
}

// RunPOST 每个请求发送相同的请求体
func (b *APIBenchmark) RunPOST(path string, payload interface{}) *BenchmarkResult {
	return b.run(http.MethodPost, b.BaseURL+path, func(int) interface{} { return payload })
}

// RunPOSTEach 每个请求使用独立的请求体
func (b *APIBenchmark) RunPOSTEach(path string, payload PayloadFunc) *BenchmarkResult {
	return b.run(http.MethodPost, b.BaseURL+path, payload)
}

func (b *APIBenchmark) run(method, url string, payload PayloadFunc) *BenchmarkResult {
	results := make(chan RequestResult, b.Requests)
	var wg sync.WaitGroup
	limiter := make(chan struct{}, b.Concurrency)

	startTime := time.Now()

	for i := 0; i < b.Requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			limiter <- struct{}{}
			defer func() { <-limiter }()

			var body []byte
			if payload != nil {
				var err error
				if body, err = json.Marshal(payload(i)); err != nil {
					results <- RequestResult{Error: fmt.Errorf("encode payload: %w", err)}
					return
				}
			}

			start := time.Now()
			req, err := http.NewRequest(method, url, bytes.NewReader(body))
			if err != nil {
				results <- RequestResult{Error: err}
				return
			}
			req.Header.Set("Content-Type", "application/json")
			if b.AuthToken != "" {
				req.Header.Set("Authorization", "Bearer "+b.AuthToken)
			}

			resp, err := b.Client.Do(req)
			if err != nil {
				results <- RequestResult{Error: err}
				return
			}
			resp.Body.Close()

			results <- RequestResult{Duration: time.Since(start), StatusCode: resp.StatusCode}
		}(i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return collect(method, url, b.Concurrency, b.Requests, startTime, results)
}

func collect(method, url string, concurrency, total int, startTime time.Time, results <-chan RequestResult) *BenchmarkResult {
	var minTime time.Duration = 1<<63 - 1
	var maxTime, totalTime time.Duration
	successCount, failureCount := 0, 0
	statusCodes := make(map[int]int)
	var errs []string

	for result := range results {
		if result.Error != nil {
			failureCount++
			errs = append(errs, result.Error.Error())
			continue
		}

		totalTime += result.Duration
		if result.Duration < minTime {
			minTime = result.Duration
		}
		if result.Duration > maxTime {
			maxTime = result.Duration
		}

		statusCodes[result.StatusCode]++
		if result.StatusCode >= 200 && result.StatusCode < 300 {
			successCount++
		} else {
			failureCount++
		}
	}

	elapsed := time.Since(startTime)
	averageTime := time.Duration(0)
	if n := successCount + failureCount - len(errs); n > 0 {
		averageTime = totalTime / time.Duration(n)
	} else {
		minTime = 0
	}

	return &BenchmarkResult{
		URL:            url,
		Method:         method,
		Concurrency:    concurrency,
		TotalRequests:  total,
		SuccessCount:   successCount,
		FailureCount:   failureCount,
		TotalTime:      elapsed,
		AverageTime:    averageTime,
		MinTime:        minTime,
		MaxTime:        maxTime,
		RequestsPerSec: float64(total) / elapsed.Seconds(),
		StatusCodes:    statusCodes,
		Errors:         errs,
	}
}

// Logger 与 testing.TB 兼容
type Logger interface {
	Logf(format string, args ...interface{})
}

// Report 输出压测结果
func (r *BenchmarkResult) Report(l Logger) {
	l.Logf("%s %s concurrency=%d total=%d ok=%d failed=%d elapsed=%s avg=%s min=%s max=%s rps=%.2f",
		r.Method, r.URL, r.Concurrency, r.TotalRequests, r.SuccessCount, r.FailureCount,
		r.TotalTime, r.AverageTime, r.MinTime, r.MaxTime, r.RequestsPerSec)

	codes := make([]int, 0, len(r.StatusCodes))
	for c := range r.StatusCodes {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	for _, c := range codes {
		l.Logf("  status %d: %d", c, r.StatusCodes[c])
	}
	for i, err := range r.Errors {
		if i >= 5 {
			l.Logf("  ... %d more errors", len(r.Errors)-5)
			break
		}
		l.Logf("  error: %s", err)
	}
}
