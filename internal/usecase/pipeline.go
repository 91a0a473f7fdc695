package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"PaperRadar/internal/domain"
	"PaperRadar/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.FeedSource
	Repository ports.ItemRepository
	Summarizer ports.Summarizer
	Notifier   ports.Notifier
	Logger     *slog.Logger
}

// Pipeline implements the ingest workflow: fetch feeds, drop already-seen
// items, generate blurbs for fresh papers, persist, and push the digest.
type Pipeline struct {
	source     ports.FeedSource
	repository ports.ItemRepository
	summarizer ports.Summarizer
	notifier   ports.Notifier
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:     deps.Source,
		repository: deps.Repository,
		summarizer: deps.Summarizer,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
	}
}

// ProcessRun executes one full ingest run.
func (p *Pipeline) ProcessRun(ctx context.Context, trigger time.Time) error {
	if p.source == nil {
		return nil
	}

	items, err := p.source.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch feeds: %w", err)
	}
	if len(items) == 0 {
		p.debug("no items fetched", "trigger", trigger.Format(time.RFC3339))
		return nil
	}

	fresh, err := p.filterSeen(ctx, items)
	if err != nil {
		return err
	}
	if len(fresh) == 0 {
		p.debug("no fresh items", "fetched", len(items))
		return nil
	}

	degraded := p.summarize(ctx, fresh)

	for _, item := range fresh {
		if p.repository == nil {
			break
		}
		if err := p.repository.SaveItem(ctx, item, item.Summary, degraded); err != nil {
			return fmt.Errorf("persist item %s: %w", item.GUID, err)
		}
	}

	if p.notifier == nil {
		return nil
	}

	if err := p.notifier.PublishDigest(ctx, buildDigest(fresh)); err != nil {
		return fmt.Errorf("publish digest: %w", err)
	}

	p.debug("run complete", "fresh", len(fresh), "degraded", degraded)
	return nil
}

func (p *Pipeline) filterSeen(ctx context.Context, items []domain.ParsedItem) ([]domain.ParsedItem, error) {
	seen := map[string]bool{}
	if p.repository != nil {
		guids := make([]string, len(items))
		for i, item := range items {
			guids[i] = item.GUID
		}
		var err error
		seen, err = p.repository.SeenGUIDs(ctx, guids)
		if err != nil {
			return nil, fmt.Errorf("load seen: %w", err)
		}
	}

	fresh := make([]domain.ParsedItem, 0, len(items))
	for _, item := range items {
		if !seen[item.GUID] {
			fresh = append(fresh, item)
		}
	}
	return fresh, nil
}

// summarize fills the Summary field of paper-type items in place and
// reports whether the batch degraded. Summarization never aborts the run.
func (p *Pipeline) summarize(ctx context.Context, fresh []domain.ParsedItem) bool {
	if p.summarizer == nil {
		return false
	}

	var reqs []domain.SummaryRequest
	for _, item := range fresh {
		if item.Paper {
			reqs = append(reqs, domain.SummaryRequest{
				Key:      item.GUID,
				Title:    item.Title,
				Abstract: item.Summary,
			})
		}
	}
	if len(reqs) == 0 {
		return false
	}

	blurbs, degraded := p.summarizer.SummarizeBatch(ctx, reqs)
	for i := range fresh {
		if blurb, ok := blurbs[fresh[i].GUID]; ok && blurb != "" {
			fresh[i].Summary = blurb
		}
	}
	return degraded
}

func buildDigest(items []domain.ParsedItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item.Title)
		if item.Summary != "" {
			fmt.Fprintf(&b, "%s\n", item.Summary)
		}
		fmt.Fprintf(&b, "%s\n\n", item.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
