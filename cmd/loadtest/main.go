package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/nikolaydubina/fpdecimal"
	"golang.org/x/time/rate"

	"github.com/erain9/limitbook/pkg/core"
	"github.com/erain9/limitbook/pkg/engine"
)

var (
	numWorkers      = flag.Int("workers", 8, "Number of concurrent workers")
	ordersPerWorker = flag.Int("orders", 50000, "Orders per worker")
	maxRate         = flag.Int("rate", 100000, "Maximum commands per second")
	symbol          = flag.String("symbol", "LOAD", "Instrument symbol")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Println("Received interrupt signal, cleaning up...")
		cancel()
	}()

	// In-process engine: this measures matching cost, not transport cost.
	manager := engine.NewManager()
	defer manager.Close()

	if _, err := manager.CreateBook(ctx, *symbol); err != nil {
		log.Fatalf("Failed to create order book: %v", err)
	}

	limiter := rate.NewLimiter(rate.Limit(*maxRate), *maxRate/10+1)

	// Latencies in microseconds, up to 10s.
	var histMu sync.Mutex
	hist := hdrhistogram.New(1, 10_000_000, 3)

	var wg sync.WaitGroup
	errChan := make(chan error, *numWorkers)

	start := time.Now()
	log.Printf("Starting %d workers, %d orders per worker, rate limit %d/s...",
		*numWorkers, *ordersPerWorker, *maxRate)

	for i := 0; i < *numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(workerID) + time.Now().UnixNano()))
			local := hdrhistogram.New(1, 10_000_000, 3)

			for j := 0; j < *ordersPerWorker; j++ {
				if err := limiter.Wait(ctx); err != nil {
					if ctx.Err() == nil {
						errChan <- fmt.Errorf("rate limiter error: %v", err)
					}
					break
				}

				order := randomOrder(r, *symbol, workerID**ordersPerWorker+j)
				began := time.Now()
				_, err := manager.InsertOrder(ctx, order)
				if err != nil {
					errChan <- fmt.Errorf("insert failed: %v", err)
					continue
				}
				_ = local.RecordValue(time.Since(began).Microseconds())
			}

			histMu.Lock()
			hist.Merge(local)
			histMu.Unlock()
		}(i)
	}

	wg.Wait()
	duration := time.Since(start)
	close(errChan)

	var errCount int
	var firstErr error
	for err := range errChan {
		if firstErr == nil {
			firstErr = err
		}
		errCount++
	}

	total := hist.TotalCount()
	log.Printf("Load test completed in %v", duration)
	log.Printf("Commands applied: %d (%.0f/s)", total, float64(total)/duration.Seconds())
	log.Printf("Latency p50: %dus  p99: %dus  p99.9: %dus  max: %dus",
		hist.ValueAtQuantile(50), hist.ValueAtQuantile(99),
		hist.ValueAtQuantile(99.9), hist.Max())
	log.Printf("Errors encountered: %d", errCount)

	if firstErr != nil {
		log.Printf("First error: %v", firstErr)
		os.Exit(1)
	}
}

// randomOrder builds orders around a fixed midpoint so roughly half of them
// cross and exercise the matching path.
func randomOrder(r *rand.Rand, symbol string, orderNum int) *core.Order {
	side := core.Buy
	if r.Float64() < 0.5 {
		side = core.Sell
	}

	price := fpdecimal.FromFloat(100.0 + (r.Float64()-0.5)*2.0)
	quantity := fpdecimal.FromFloat(1.0 + float64(r.Intn(10)))

	order, err := core.NewOrder(fmt.Sprintf("order-%d", orderNum), symbol, side, quantity, price, core.GTC)
	if err != nil {
		panic(err)
	}
	return order
}
