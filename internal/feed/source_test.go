package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"PaperRadar/internal/config"
)

// fakeFetcher serves canned content per URL.
type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	page, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}
	return []byte(page), nil
}

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Blog</title>
    <item>
      <guid>tag:example.org,2024:1</guid>
      <title>  First Post  </title>
      <link>https://example.org/posts/1</link>
      <description>Body of the first post.</description>
      <pubDate>Mon, 06 May 2024 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>No GUID Post</title>
      <link>https://example.org/posts/2</link>
    </item>
  </channel>
</rss>`

func TestFetchAllRoutesListingToExtractor(t *testing.T) {
	t.Parallel()

	listingURL := "https://huggingface.co/papers/date/2024-05-06"
	fetcher := &fakeFetcher{pages: map[string]string{
		listingURL: "[10](/papers/2405.00010)\n### Paper From Listing\n",
	}}

	source := NewSource(fetcher, []config.FeedConfig{
		{Name: "hf-daily-papers", URL: listingURL},
	}, nil)

	items, err := source.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	got := items[0]
	if got.GUID != "hf-papers:2405.00010" {
		t.Fatalf("unexpected guid: %s", got.GUID)
	}
	if got.Source != "hf-daily-papers" {
		t.Fatalf("unexpected source: %s", got.Source)
	}
	if !got.Paper {
		t.Fatalf("listing items must be papers")
	}

	want := time.Date(2024, time.May, 6, 12, 0, 0, 0, time.UTC)
	if !got.PublishedAt.Equal(want) {
		t.Fatalf("expected noon UTC on the listed day, got %v", got.PublishedAt)
	}
}

func TestFetchAllParsesSyndication(t *testing.T) {
	t.Parallel()

	feedURL := "https://example.org/rss.xml"
	fetcher := &fakeFetcher{pages: map[string]string{feedURL: rssFixture}}

	source := NewSource(fetcher, []config.FeedConfig{
		{Name: "example-blog", URL: feedURL},
	}, nil)

	items, err := source.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.GUID != "tag:example.org,2024:1" {
		t.Fatalf("unexpected guid: %s", first.GUID)
	}
	if first.Title != "First Post" {
		t.Fatalf("title not trimmed: %q", first.Title)
	}
	if first.Summary != "Body of the first post." {
		t.Fatalf("unexpected summary: %q", first.Summary)
	}
	if first.Paper {
		t.Fatalf("non-paper feed must not mark items as papers")
	}

	want := time.Date(2024, time.May, 6, 10, 0, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Fatalf("unexpected published time: %v", first.PublishedAt)
	}

	// guid falls back to the link
	if items[1].GUID != "https://example.org/posts/2" {
		t.Fatalf("guid fallback failed: %s", items[1].GUID)
	}
}

func TestFetchAllPropagatesFetchErrors(t *testing.T) {
	t.Parallel()

	source := NewSource(&fakeFetcher{}, []config.FeedConfig{
		{Name: "broken", URL: "https://example.org/404"},
	}, nil)

	if _, err := source.FetchAll(context.Background()); err == nil {
		t.Fatalf("expected fetch error")
	}
}
