// Package main is a mock scraper that feeds the search service with sample
// marketplace listings, either through the HTTP bulk endpoint or as a
// listing.scraped event on Kafka.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Armandase/seconde-main/pkg/httpclient"
	pkgkafka "github.com/Armandase/seconde-main/pkg/kafka"
	"github.com/Armandase/seconde-main/pkg/logger"
)

const (
	viaHTTP  = "http"
	viaKafka = "kafka"

	eventListingScraped = "listing.scraped"
)

type options struct {
	via       string
	searchURL string
	brokers   []string
	topic     string
	dryRun    bool
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	var opts options
	var brokers string
	fs.StringVar(&opts.via, "via", viaHTTP, "delivery path: http or kafka")
	fs.StringVar(&opts.searchURL, "search-url", getEnv("SEARCH_SERVICE_URL", "http://localhost:4002"), "search service base URL")
	fs.StringVar(&brokers, "brokers", getEnv("KAFKA_BROKERS", "localhost:9092"), "comma-separated Kafka brokers")
	fs.StringVar(&opts.topic, "topic", getEnv("KAFKA_INGEST_TOPIC", "marketplace.listing.scraped"), "Kafka topic for scraped listings")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "print the listings instead of sending them")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.via != viaHTTP && opts.via != viaKafka {
		return options{}, fmt.Errorf("unknown -via %q", opts.via)
	}
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			opts.brokers = append(opts.brokers, b)
		}
	}
	opts.searchURL = strings.TrimRight(opts.searchURL, "/")
	return opts, nil
}

func main() {
	log := logger.New("scraper", getEnv("LOG_LEVEL", "info"))

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Error("invalid arguments", slog.String("error", err.Error()))
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listings := Generate(time.Now(), rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))

	if opts.dryRun {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(listings); err != nil {
			log.Error("failed to print listings", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	switch opts.via {
	case viaHTTP:
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("search-service"),
			log,
		)
		summary, err := sendHTTP(ctx, client, opts.searchURL, listings)
		if err != nil {
			if httpclient.IsUnavailable(err) {
				log.Error("search service unavailable", slog.String("url", opts.searchURL), slog.String("error", err.Error()))
			} else {
				log.Error("bulk ingest rejected", slog.String("error", err.Error()))
			}
			os.Exit(1)
		}
		log.Info("listings sent",
			slog.Int("count", summary.Count),
			slog.Int("indexed", summary.Indexed),
			slog.Int("failed", len(summary.Failed)),
		)
	case viaKafka:
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(opts.brokers), log)
		defer func() { _ = producer.Close() }()
		batchID, err := sendKafka(ctx, producer, opts.topic, listings)
		if err != nil {
			log.Error("publish failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("listings published",
			slog.String("topic", opts.topic),
			slog.String("batch_id", batchID),
			slog.Int("count", len(listings)),
		)
	}
}

type bulkPoster interface {
	PostJSON(ctx context.Context, url string, v any) (*http.Response, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

type bulkItem struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Error  string `json:"error,omitempty"`
}

type bulkSummary struct {
	Message string     `json:"message"`
	Count   int        `json:"count"`
	Indexed int        `json:"indexed"`
	Failed  []bulkItem `json:"failed"`
}

// sendHTTP posts the listings to the bulk ingestion endpoint.
func sendHTTP(ctx context.Context, client bulkPoster, baseURL string, listings []Listing) (*bulkSummary, error) {
	resp, err := client.PostJSON(ctx, baseURL+"/api/products/bulk", map[string]any{"products": listings})
	if err != nil {
		return nil, fmt.Errorf("post listings: %w", err)
	}
	var summary bulkSummary
	if err := httpclient.DecodeJSON(resp, "search-service", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// sendKafka publishes the listings as a single listing.scraped event and
// returns the batch id used as the event aggregate.
func sendKafka(ctx context.Context, publisher eventPublisher, topic string, listings []Listing) (string, error) {
	batchID := uuid.NewString()
	event, err := pkgkafka.NewEvent(eventListingScraped, batchID, "listing", "scraper", map[string]any{"products": listings})
	if err != nil {
		return "", fmt.Errorf("build event: %w", err)
	}
	event.WithCorrelationID(batchID).WithMetadata("listing_count", strconv.Itoa(len(listings)))
	if err := publisher.Publish(ctx, topic, event); err != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, err)
	}
	return batchID, nil
}
