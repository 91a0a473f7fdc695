// Package hfpapers recovers the paper list from the Hugging Face daily-papers
// page. The page is not a syndication document and its internal structure is
// not stable, so extraction cascades through progressively less-structured
// strategies; the first strategy yielding any candidates wins.
package hfpapers

import (
	"encoding/json"
	"html"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"PaperRadar/internal/domain"
	"PaperRadar/internal/jsonwalk"
	"PaperRadar/internal/textutil"
)

const (
	listingPrefix  = "https://huggingface.co/papers"
	paperURLPrefix = "https://huggingface.co/papers/"
	guidPrefix     = "hf-papers:"

	minTitleRunes = 6
)

var (
	arxivIDExpr     = regexp.MustCompile(`\b(\d{4}\.\d{5})\b`)
	papersPathExpr  = regexp.MustCompile(`/papers/(\d{4}\.\d{5})\b`)
	listingDateExpr = regexp.MustCompile(`/papers/date/(\d{4}-\d{2}-\d{2})\b`)

	anchorExpr   = regexp.MustCompile(`(?is)href="/papers/(\d{4}\.\d{5})[^"]*"\s*[^>]*>([^<]{3,300})</a>`)
	markdownExpr = regexp.MustCompile(`(?is)\(/papers/(\d{4}\.\d{5})\)[^\n]*\n\s*###\s+(.+?)\s*(?:\n|$)`)

	// Upvote badges render as anchors whose text is a count like "1.2k".
	badgeExpr = regexp.MustCompile(`^[\d.\-kK]+$`)
)

// IsListingURL reports whether url points at the daily-papers listing
// (either the today page or a dated page).
func IsListingURL(url string) bool {
	return strings.HasPrefix(url, listingPrefix)
}

// candidate is a pre-deduplication extraction result from one strategy.
type candidate struct {
	id     string
	title  string
	author string
}

// strategy turns raw page content into candidates. Strategies never fail:
// anything unparseable means zero candidates.
type strategy func(content string) []candidate

// Parse extracts the paper list from raw page content. It never returns an
// error; if every strategy comes up empty the result is an empty list. The
// published-at timestamp is resolved once from the feed URL and applied to
// every record.
func Parse(content, feedURL string) []domain.ParsedItem {
	return parseAt(content, feedURL, time.Now())
}

func parseAt(content, feedURL string, now time.Time) []domain.ParsedItem {
	publishedAt := resolvePublishedAt(feedURL, now)
	for _, s := range []strategy{fromNextData, fromAnchors, fromMarkdownish, fromStrippedText} {
		if cands := s(content); len(cands) > 0 {
			return assemble(cands, publishedAt)
		}
	}
	return nil
}

// resolvePublishedAt pins dated listings to noon UTC on the listed day so
// items do not drift across day boundaries depending on where the page was
// fetched from. The today listing uses the fetch instant, whole seconds.
func resolvePublishedAt(feedURL string, now time.Time) time.Time {
	if m := listingDateExpr.FindStringSubmatch(feedURL); m != nil {
		if day, err := time.Parse("2006-01-02", m[1]); err == nil {
			return day.Add(12 * time.Hour)
		}
	}
	return now.UTC().Truncate(time.Second)
}

func assemble(cands []candidate, publishedAt time.Time) []domain.ParsedItem {
	items := make([]domain.ParsedItem, 0, len(cands))
	for _, c := range cands {
		items = append(items, domain.ParsedItem{
			GUID:        guidPrefix + c.id,
			Title:       c.title,
			URL:         paperURLPrefix + c.id,
			PublishedAt: publishedAt,
			Author:      c.author,
			Paper:       true,
		})
	}
	return items
}

// dedupe keeps one candidate per id. The longest title wins since it is the
// most likely to be the real one; on equal length the first seen wins.
func dedupe(cands []candidate) []candidate {
	index := make(map[string]int, len(cands))
	out := make([]candidate, 0, len(cands))
	for _, c := range cands {
		i, ok := index[c.id]
		if !ok {
			index[c.id] = len(out)
			out = append(out, c)
			continue
		}
		if utf8.RuneCountInString(c.title) > utf8.RuneCountInString(out[i].title) {
			out[i] = c
		}
	}
	return out
}

var (
	idFields     = []string{"arxivId", "arxiv_id", "paperId", "paper_id", "id"}
	authorFields = []string{"authors", "author", "authorText", "author_text"}
)

// fromNextData mines the embedded __NEXT_DATA__ JSON blob. The blob's shape
// is an internal implementation detail of the site, so instead of addressing
// fields by path it walks every map node and keeps those that look like a
// paper record: a real title plus an extractable arXiv id.
func fromNextData(content string) []candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	raw := strings.TrimSpace(doc.Find(`script#__NEXT_DATA__`).First().Text())
	if raw == "" {
		return nil
	}

	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil
	}

	var cands []candidate
	for node := range jsonwalk.Maps(data) {
		title, _ := node["title"].(string)
		title = strings.TrimSpace(title)
		if utf8.RuneCountInString(title) < minTitleRunes {
			continue
		}

		id := idFromNode(node)
		if id == "" {
			continue
		}

		cands = append(cands, candidate{id: id, title: title, author: authorFromNode(node)})
	}

	return dedupe(cands)
}

func idFromNode(node map[string]any) string {
	for _, k := range idFields {
		if v, ok := node[k].(string); ok {
			if m := arxivIDExpr.FindString(v); m != "" {
				return m
			}
		}
	}
	// Some shapes carry the id only inside a URL field.
	if u, ok := node["url"].(string); ok {
		if m := arxivIDExpr.FindString(u); m != "" {
			return m
		}
	}
	return ""
}

func authorFromNode(node map[string]any) string {
	for _, k := range authorFields {
		if v, ok := node[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// fromAnchors scans for <a href="/papers/<id>">Title</a>, rejecting anchors
// whose text is an interaction-count badge rather than a title.
func fromAnchors(content string) []candidate {
	var cands []candidate
	for _, m := range anchorExpr.FindAllStringSubmatch(content, -1) {
		title := textutil.Normalize(html.UnescapeString(m[2]))
		if title == "" || badgeExpr.MatchString(title) {
			continue
		}
		cands = append(cands, candidate{id: m[1], title: title})
	}
	return dedupe(cands)
}

// fromMarkdownish handles content rewritten into markdown-like text by a
// proxy or caching layer: a link line bearing the id followed by a heading
// line giving the title. When no such pairs exist it falls back to bare
// /papers/<id> path fragments with placeholder titles.
func fromMarkdownish(content string) []candidate {
	var cands []candidate
	for _, m := range markdownExpr.FindAllStringSubmatch(content, -1) {
		title := textutil.Normalize(m[2])
		if title != "" {
			cands = append(cands, candidate{id: m[1], title: title})
		}
	}

	if len(cands) == 0 {
		for _, id := range distinctIDs(papersPathExpr, content) {
			cands = append(cands, candidate{id: id, title: placeholderTitle(id)})
		}
	}

	return dedupe(cands)
}

// fromStrippedText is the last resort: strip all markup and scan the visible
// text for bare arXiv ids. Guarantees a non-empty result whenever the id
// pattern appears anywhere in the content.
func fromStrippedText(content string) []candidate {
	var cands []candidate
	for _, id := range distinctIDs(arxivIDExpr, stripMarkup(content)) {
		cands = append(cands, candidate{id: id, title: placeholderTitle(id)})
	}
	return cands
}

// stripMarkup drops script/style/noscript subtrees and returns the page's
// visible text with entities decoded.
func stripMarkup(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return html.UnescapeString(content)
	}
	doc.Find("script,style,noscript").Remove()
	return doc.Text()
}

func placeholderTitle(id string) string {
	return "arXiv:" + id
}

func distinctIDs(expr *regexp.Regexp, content string) []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, m := range expr.FindAllStringSubmatch(content, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	}
	sort.Strings(ids)
	return ids
}
