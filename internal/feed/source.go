// Package feed turns configured feed endpoints into normalized items.
// Well-formed RSS/Atom documents go through gofeed; the Hugging Face
// daily-papers listing, which is not a syndication document, routes to the
// cascading extractor in hfpapers.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"PaperRadar/internal/config"
	"PaperRadar/internal/domain"
	"PaperRadar/internal/hfpapers"
	"PaperRadar/internal/ports"
)

// Source implements ports.FeedSource over the configured feeds.
type Source struct {
	fetcher ports.Fetcher
	feeds   []config.FeedConfig
	logger  *slog.Logger
}

var _ ports.FeedSource = (*Source)(nil)

// NewSource wires a fetcher with config-defined feeds.
func NewSource(fetcher ports.Fetcher, feeds []config.FeedConfig, log *slog.Logger) *Source {
	return &Source{fetcher: fetcher, feeds: feeds, logger: log}
}

// FetchAll downloads and parses every configured feed.
func (s *Source) FetchAll(ctx context.Context) ([]domain.ParsedItem, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("feed fetcher is not configured")
	}

	var aggregated []domain.ParsedItem
	for _, f := range s.feeds {
		raw, err := s.fetcher.Fetch(ctx, f.URL)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", f.Name, err)
		}

		var items []domain.ParsedItem
		if hfpapers.IsListingURL(f.URL) {
			items = hfpapers.Parse(string(raw), f.URL)
		} else {
			items, err = parseSyndication(raw, f.Papers)
			if err != nil {
				return nil, fmt.Errorf("feed %s: %w", f.Name, err)
			}
		}

		for i := range items {
			items[i].Source = f.Name
		}

		s.debug("feed produced items", "feed", f.Name, "count", len(items))
		aggregated = append(aggregated, items...)
	}

	s.debug("fetch all done", "total_items", len(aggregated))
	return aggregated, nil
}

// parseSyndication normalizes a well-formed RSS/Atom document. The feed
// description fills the Summary slot, which doubles as the abstract for
// paper-type feeds.
func parseSyndication(raw []byte, papers bool) ([]domain.ParsedItem, error) {
	parsed, err := gofeed.NewParser().ParseString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]domain.ParsedItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		guid := it.GUID
		if guid == "" {
			guid = it.Link
		}
		if guid == "" {
			continue
		}

		item := domain.ParsedItem{
			GUID:    guid,
			Title:   strings.TrimSpace(it.Title),
			URL:     it.Link,
			Summary: strings.TrimSpace(it.Description),
			Paper:   papers,
		}

		if it.PublishedParsed != nil {
			item.PublishedAt = it.PublishedParsed.UTC().Truncate(time.Second)
		} else {
			item.PublishedAt = time.Now().UTC().Truncate(time.Second)
		}

		if it.Author != nil {
			item.Author = it.Author.Name
		}

		items = append(items, item)
	}

	return items, nil
}

func (s *Source) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
