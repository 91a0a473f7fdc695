// Package summary generates bounded-length blurbs for paper items. Requests
// are sent to an AI capability in fixed-size batches; whenever the capability
// is unusable, fails, or returns malformed output the affected requests
// degrade to a plain truncation of the abstract or title, never to an error.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"PaperRadar/internal/domain"
	"PaperRadar/internal/ports"
	"PaperRadar/internal/textutil"
)

const (
	// BatchSize is the number of requests bundled into one capability call.
	BatchSize = 10

	// FallbackMaxChars bounds truncation-fallback blurbs. Deliberately more
	// generous than the AI budget: raw abstract text needs more room to stay
	// readable.
	FallbackMaxChars = 200

	// DefaultMaxChars is the AI-path blurb budget.
	DefaultMaxChars = 100

	// abstractCeiling bounds the abstract embedded in the request payload
	// regardless of source length.
	abstractCeiling = 1200

	temperature    = 0.2
	tokensPerItem  = 120
	minTokenBudget = 800
)

// Summarizer batches summary requests against an AI capability.
type Summarizer struct {
	client   ports.AIClient
	maxChars int
	logger   *slog.Logger
}

var _ ports.Summarizer = (*Summarizer)(nil)

// New builds a Summarizer; maxChars <= 0 selects the default budget.
func New(client ports.AIClient, maxChars int, log *slog.Logger) *Summarizer {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Summarizer{client: client, maxChars: maxChars, logger: log}
}

// SummarizeBatch returns one blurb per request key, plus a flag reporting
// whether any entry came from the truncation fallback rather than the model.
// Callers typically skip long-term caching of degraded entries. The method
// never fails: capability, transport, and parse errors degrade the affected
// batch; a missing or empty reply value degrades that single item.
func (s *Summarizer) SummarizeBatch(ctx context.Context, reqs []domain.SummaryRequest) (map[string]string, bool) {
	if len(reqs) == 0 {
		return map[string]string{}, false
	}

	if ok, reason := s.validate(); !ok {
		s.info("ai unavailable, truncating abstracts instead", "reason", reason)
		out := make(map[string]string, len(reqs))
		for _, r := range reqs {
			if fb := fallbackBlurb(r); fb != "" {
				out[r.Key] = fb
			}
		}
		return out, true
	}

	// Batches never overlap in keys, so merging is order-independent and the
	// flag is a plain OR over batch outcomes.
	degraded := false
	out := make(map[string]string, len(reqs))

	for start := 0; start < len(reqs); start += BatchSize {
		batch := reqs[start:min(start+BatchSize, len(reqs))]
		res := s.processBatch(ctx, start/BatchSize+1, batch)
		for key, blurb := range res.blurbs {
			out[key] = blurb
		}
		degraded = degraded || res.degraded
	}

	return out, degraded
}

// batchResult is the outcome of one batch: its blurbs plus whether any of
// them came from the fallback path.
type batchResult struct {
	blurbs   map[string]string
	degraded bool
}

// processBatch answers every request in the batch. A capability or parse
// failure degrades the whole batch; a missing or empty reply value degrades
// only that item.
func (s *Summarizer) processBatch(ctx context.Context, seq int, batch []domain.SummaryRequest) batchResult {
	res := batchResult{blurbs: make(map[string]string, len(batch))}

	reply, err := s.callBatch(ctx, batch)
	if err != nil {
		s.warn("ai batch failed, falling back to truncation", "batch", seq, "error", err)
		for _, r := range batch {
			res.blurbs[r.Key] = fallbackBlurb(r)
		}
		res.degraded = true
		return res
	}

	for _, r := range batch {
		value, _ := reply[r.Key].(string)
		value = textutil.Normalize(value)
		if value == "" {
			res.blurbs[r.Key] = fallbackBlurb(r)
			res.degraded = true
			continue
		}
		res.blurbs[r.Key] = textutil.TruncateChars(value, s.maxChars)
	}

	return res
}

func (s *Summarizer) validate() (bool, string) {
	if s.client == nil {
		return false, "no ai client configured"
	}
	return s.client.ValidateConfig()
}

// fallbackBlurb derives a blurb from the abstract, or the title when the
// abstract is empty. Empty only when both are empty.
func fallbackBlurb(r domain.SummaryRequest) string {
	text := textutil.Normalize(r.Abstract)
	if text == "" {
		text = textutil.Normalize(r.Title)
	}
	return textutil.TruncateAtBoundary(text, FallbackMaxChars)
}

type batchItem struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
}

// callBatch issues one capability call for the batch and decodes the reply
// into a key -> blurb mapping. Any failure aborts the whole batch.
func (s *Summarizer) callBatch(ctx context.Context, batch []domain.SummaryRequest) (map[string]any, error) {
	items := make([]batchItem, 0, len(batch))
	for _, r := range batch {
		items = append(items, batchItem{
			Key:      r.Key,
			Title:    textutil.Normalize(r.Title),
			Abstract: textutil.TruncateChars(r.Abstract, abstractCeiling),
		})
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	maxTokens := len(batch) * tokensPerItem
	if maxTokens < minTokenBudget {
		maxTokens = minTokenBudget
	}

	reply, err := s.client.Chat(ctx, []domain.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt(payload)},
	}, temperature, maxTokens)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(extractJSON(reply)), &parsed); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return parsed, nil
}

const systemPrompt = "你是一名中文论文摘要助手。基于论文标题与摘要，生成极短中文总结。" +
	"输出必须严格为 JSON，不要输出任何额外文字。"

func userPrompt(payload []byte) string {
	return "请为每条输入生成一段【不超过100个汉字】的简体中文摘要，要求：\n" +
		"- 只输出一句话或两句短句，但不得换行（最终值中不得包含\\n）\n" +
		"- 聚焦：研究问题/方法/贡献/结果（尽量覆盖）\n" +
		"- 不要写“本文提出/本文研究”这类套话\n" +
		"- 尽量不要出现英文；若不可避免，保留必要缩写即可\n" +
		"- 不要编号，不要Markdown\n" +
		"- 若信息不足，用标题信息做合理概括\n" +
		"\n" +
		"输入 JSON 数组：\n" +
		string(payload) + "\n" +
		"\n" +
		"输出 JSON 对象，key 为输入的 key，value 为摘要字符串：\n" +
		`{"<key>":"<summary>"}`
}

// extractJSON unwraps a reply fenced as ```json ... ``` or ``` ... ```.
// Unfenced replies pass through unchanged.
func extractJSON(reply string) string {
	raw := strings.TrimSpace(reply)
	if _, after, found := strings.Cut(raw, "```json"); found {
		if body, _, closed := strings.Cut(after, "```"); closed {
			return strings.TrimSpace(body)
		}
		return strings.TrimSpace(after)
	}
	if strings.Contains(raw, "```") {
		parts := strings.SplitN(raw, "```", 3)
		if len(parts) >= 2 {
			return strings.TrimSpace(parts[1])
		}
	}
	return raw
}

func (s *Summarizer) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Summarizer) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
