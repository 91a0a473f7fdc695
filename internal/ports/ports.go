package ports

import (
	"context"
	"time"

	"PaperRadar/internal/domain"
)

// FeedSource pulls normalized items from the configured feeds.
type FeedSource interface {
	FetchAll(ctx context.Context) ([]domain.ParsedItem, error)
}

// Fetcher downloads raw feed or listing-page content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ItemRepository persists seen items for deduplication/history.
type ItemRepository interface {
	SeenGUIDs(ctx context.Context, guids []string) (map[string]bool, error)
	SaveItem(ctx context.Context, item domain.ParsedItem, summary string, degraded bool) error
}

// AIClient is the opaque summarization capability. It may fail or return
// text that does not conform to the requested format; callers must cope.
type AIClient interface {
	ValidateConfig() (ok bool, reason string)
	Chat(ctx context.Context, messages []domain.ChatMessage, temperature float64, maxTokens int) (string, error)
}

// Summarizer produces one short blurb per request key. The boolean reports
// whether any entry came from the non-AI fallback path.
type Summarizer interface {
	SummarizeBatch(ctx context.Context, reqs []domain.SummaryRequest) (map[string]string, bool)
}

// Notifier streams digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
