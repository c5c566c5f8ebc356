package marketmaker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func TestBinancePriceFetcherFetchPrice(t *testing.T) {
	// Create a test server that simulates Binance API
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			t.Errorf("Expected path /api/v3/ticker/price, got %s", r.URL.Path)
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}

		symbol := r.URL.Query().Get("symbol")
		if symbol != "BTCUSDT" {
			t.Errorf("Expected symbol BTCUSDT, got %s", symbol)
			http.Error(w, "Invalid symbol", http.StatusBadRequest)
			return
		}

		resp := binanceTickerResponse{
			Symbol: "BTCUSDT",
			Price:  "50000.00",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	cfg := &Config{
		ExternalSymbol: "BTCUSDT",
		PriceSourceURL: server.URL,
		HTTPTimeout:    5 * time.Second,
		MaxRetries:     3,
	}

	fetcher, err := NewPriceFetcher(cfg, testLogger())
	if err != nil {
		t.Fatalf("Failed to create price fetcher: %v", err)
	}
	defer fetcher.Close()

	price, err := fetcher.FetchPrice(context.Background())
	if err != nil {
		t.Fatalf("FetchPrice failed: %v", err)
	}
	if price != 50000.0 {
		t.Errorf("Expected price 50000.0, got %f", price)
	}
}

func TestBinancePriceFetcherRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fail the first two attempts, succeed on the third.
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(binanceTickerResponse{Symbol: "BTCUSDT", Price: "123.456"})
	}))
	defer server.Close()

	cfg := &Config{
		ExternalSymbol: "BTCUSDT",
		PriceSourceURL: server.URL,
		HTTPTimeout:    5 * time.Second,
		MaxRetries:     3,
	}

	fetcher, err := NewPriceFetcher(cfg, testLogger())
	if err != nil {
		t.Fatalf("Failed to create price fetcher: %v", err)
	}
	defer fetcher.Close()

	price, err := fetcher.FetchPrice(context.Background())
	if err != nil {
		t.Fatalf("FetchPrice failed after retries: %v", err)
	}
	if price != 123.456 {
		t.Errorf("Expected price 123.456, got %f", price)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestBinancePriceFetcherExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := &Config{
		ExternalSymbol: "BTCUSDT",
		PriceSourceURL: server.URL,
		HTTPTimeout:    time.Second,
		MaxRetries:     2,
	}

	fetcher, err := NewPriceFetcher(cfg, testLogger())
	if err != nil {
		t.Fatalf("Failed to create price fetcher: %v", err)
	}
	defer fetcher.Close()

	if _, err := fetcher.FetchPrice(context.Background()); err == nil {
		t.Fatal("Expected an error after exhausting retries")
	}
}
