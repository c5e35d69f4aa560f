package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/Armandase/seconde-main/pkg/kafka"
	"github.com/Armandase/seconde-main/services/search/internal/domain"
)

// EventTypeListingScraped is emitted by the scraper for each batch of listings.
const EventTypeListingScraped = "listing.scraped"

// TopicListingScraped is the default topic scraped listings arrive on.
var TopicListingScraped = pkgkafka.Topic("listing", "scraped")

// ListingsScrapedData is the payload of a listing.scraped event.
type ListingsScrapedData struct {
	Products []domain.Product `json:"products"`
}

// BulkIngester is the part of the search service the consumer drives.
type BulkIngester interface {
	BulkIngest(ctx context.Context, products []domain.Product) (*domain.BulkResult, error)
}

// Consumer indexes listings streamed by the scraper.
type Consumer struct {
	ingester BulkIngester
	logger   *slog.Logger
}

// NewConsumer creates a new event consumer for the search service.
func NewConsumer(ingester BulkIngester, logger *slog.Logger) *Consumer {
	return &Consumer{
		ingester: ingester,
		logger:   logger,
	}
}

// Handle processes a Kafka event based on its type. Store failures are
// returned so the message is retried; rejected listings are only logged
// since redelivery cannot fix them.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case EventTypeListingScraped:
		return c.handleListingScraped(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleListingScraped(ctx context.Context, event *pkgkafka.Event) error {
	var data ListingsScrapedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal listing.scraped data: %w", err)
	}

	if len(data.Products) == 0 {
		c.logger.InfoContext(ctx, "listing.scraped event carried no products",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	result, err := c.ingester.BulkIngest(ctx, data.Products)
	if err != nil {
		return fmt.Errorf("ingest listings from event %s: %w", event.EventID, err)
	}

	for _, item := range result.Failed() {
		c.logger.WarnContext(ctx, "listing rejected",
			slog.String("event_id", event.EventID),
			slog.String("product_id", item.ID),
			slog.Int("status", item.Status),
			slog.String("error", item.Error),
		)
	}

	c.logger.InfoContext(ctx, "indexed listings from scraped event",
		slog.String("event_id", event.EventID),
		slog.Int("indexed", result.Indexed()),
		slog.Int("failed", len(result.Failed())),
	)

	return nil
}
