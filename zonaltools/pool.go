package zonaltools

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Status of one flight's processing.
type Status string

const (
	StatusOK    Status = "ok"
	StatusSkip  Status = "skip"
	StatusError Status = "error"
)

// FlightResult is the structured outcome one worker returns for one
// flight. Detail carries a stack trace when the worker panicked.
type FlightResult struct {
	Flight  int
	Status  Status
	Message string
	OutCSV  string
	NDates  int
	Detail  string
}

// Run discovers the flights under cfg.RootDataDir and processes each one
// on a bounded worker pool. Every flight, crashed ones included, yields
// exactly one result; results come back sorted by flight number.
func Run(cfg Config) ([]FlightResult, error) {
	flights, err := ListFlightFolders(cfg.RootDataDir)
	if err != nil {
		return nil, err
	}
	if len(flights) == 0 {
		return nil, fmt.Errorf("no flight folders found under %s", cfg.RootDataDir)
	}
	nums := FlightNumbers(flights)

	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = min(max(runtime.NumCPU()-1, 1), len(nums))
	}
	logrus.Infof("discovered %d flights, running up to %d workers", len(nums), workers)

	tasks := make(chan int)
	results := make(chan FlightResult, len(nums))
	var wg sync.WaitGroup

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for flight := range tasks {
				results <- runOne(cfg, flight, flights[flight])
			}
		}()
	}

	go func() {
		for _, n := range nums {
			tasks <- n
		}
		close(tasks)
		wg.Wait()
		close(results)
	}()

	out := make([]FlightResult, 0, len(nums))
	for res := range results {
		switch res.Status {
		case StatusOK:
			logrus.Infof("[OK] flight %d: %s (dates=%d)", res.Flight, res.Message, res.NDates)
		case StatusSkip:
			logrus.Warnf("[SKIP] flight %d: %s", res.Flight, res.Message)
		default:
			logrus.Errorf("[FAIL] flight %d: %s", res.Flight, res.Message)
			if res.Detail != "" {
				logrus.Error(res.Detail)
			}
		}
		out = append(out, res)
	}

	// Completion order is nondeterministic; reporting order is not.
	sort.Slice(out, func(i, j int) bool { return out[i].Flight < out[j].Flight })
	return out, nil
}

// runOne isolates a single flight: a panic becomes an error result and a
// timeout abandons the flight's goroutine (GDAL calls cannot be
// interrupted, the slot is simply given up).
func runOne(cfg Config, flight int, flightDir string) FlightResult {
	resCh := make(chan FlightResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resCh <- FlightResult{
					Flight:  flight,
					Status:  StatusError,
					Message: fmt.Sprintf("worker crashed: %v", r),
					Detail:  string(debug.Stack()),
				}
			}
		}()
		resCh <- Extract(cfg, flight, flightDir)
	}()

	if cfg.Timeout <= 0 {
		return <-resCh
	}
	select {
	case res := <-resCh:
		return res
	case <-time.After(cfg.Timeout):
		return FlightResult{
			Flight:  flight,
			Status:  StatusError,
			Message: fmt.Sprintf("timed out after %s", cfg.Timeout),
		}
	}
}
