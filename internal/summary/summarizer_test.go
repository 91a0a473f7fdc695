package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"PaperRadar/internal/domain"
)

var keyExpr = regexp.MustCompile(`"key":"([^"]+)"`)

// fakeAI scripts the capability contract: a validation verdict plus a reply
// function invoked per Chat call.
type fakeAI struct {
	valid  bool
	reason string
	calls  int
	reply  func(call int, userPayload string) (string, error)
}

func (f *fakeAI) ValidateConfig() (bool, string) {
	return f.valid, f.reason
}

func (f *fakeAI) Chat(_ context.Context, messages []domain.ChatMessage, _ float64, _ int) (string, error) {
	f.calls++
	user := ""
	for _, m := range messages {
		if m.Role == "user" {
			user = m.Content
		}
	}
	return f.reply(f.calls, user)
}

// echoReply answers every key embedded in the user payload.
func echoReply(prefix string) func(int, string) (string, error) {
	return func(_ int, user string) (string, error) {
		out := map[string]string{}
		for _, m := range keyExpr.FindAllStringSubmatch(user, -1) {
			out[m[1]] = prefix + m[1]
		}
		raw, err := json.Marshal(out)
		return string(raw), err
	}
}

func makeRequests(n int) []domain.SummaryRequest {
	reqs := make([]domain.SummaryRequest, 0, n)
	for i := 0; i < n; i++ {
		reqs = append(reqs, domain.SummaryRequest{
			Key:      fmt.Sprintf("hf-papers:2405.%05d", i+1),
			Title:    fmt.Sprintf("Paper Number %d", i+1),
			Abstract: fmt.Sprintf("Abstract body for paper %d with enough text.", i+1),
		})
	}
	return reqs
}

func TestEmptyInputSkipsCapability(t *testing.T) {
	t.Parallel()

	ai := &fakeAI{valid: true, reply: echoReply("摘要")}
	out, degraded := New(ai, 0, nil).SummarizeBatch(context.Background(), nil)

	if len(out) != 0 || degraded {
		t.Fatalf("expected empty non-degraded result, got %v degraded=%v", out, degraded)
	}
	if ai.calls != 0 {
		t.Fatalf("capability must not be invoked for empty input")
	}
}

func TestUnusableConfigFallsBackWithoutCalls(t *testing.T) {
	t.Parallel()

	ai := &fakeAI{valid: false, reason: "api key missing", reply: echoReply("摘要")}
	reqs := []domain.SummaryRequest{
		{Key: "k1", Title: "Title One", Abstract: "An abstract. With two sentences."},
		{Key: "k2", Title: "Only A Title"},
		{Key: "k3"}, // nothing to fall back to
	}

	out, degraded := New(ai, 0, nil).SummarizeBatch(context.Background(), reqs)

	if ai.calls != 0 {
		t.Fatalf("expected zero capability calls, got %d", ai.calls)
	}
	if !degraded {
		t.Fatalf("degradation flag must be set")
	}
	if out["k1"] != "An abstract. With two sentences." {
		t.Fatalf("unexpected abstract fallback: %q", out["k1"])
	}
	if out["k2"] != "Only A Title" {
		t.Fatalf("expected title fallback, got %q", out["k2"])
	}
	if _, ok := out["k3"]; ok {
		t.Fatalf("request with empty title and abstract must yield no entry")
	}
}

func TestBatchPartitioning(t *testing.T) {
	t.Parallel()

	ai := &fakeAI{valid: true, reply: echoReply("摘要")}
	reqs := makeRequests(25)

	out, degraded := New(ai, 0, nil).SummarizeBatch(context.Background(), reqs)

	if ai.calls != 3 {
		t.Fatalf("expected 3 capability calls for 25 requests, got %d", ai.calls)
	}
	if degraded {
		t.Fatalf("no fallback expected")
	}
	if len(out) != 25 {
		t.Fatalf("expected 25 entries, got %d", len(out))
	}
	for _, r := range reqs {
		if out[r.Key] != "摘要"+r.Key {
			t.Fatalf("unexpected blurb for %s: %q", r.Key, out[r.Key])
		}
	}
}

func TestSecondBatchFailureDegradesOnlyThatBatch(t *testing.T) {
	t.Parallel()

	ai := &fakeAI{valid: true}
	ai.reply = func(call int, user string) (string, error) {
		if call == 2 {
			return "", fmt.Errorf("upstream timeout")
		}
		return echoReply("摘要")(call, user)
	}
	reqs := makeRequests(25)

	out, degraded := New(ai, 0, nil).SummarizeBatch(context.Background(), reqs)

	if ai.calls != 3 {
		t.Fatalf("a failed batch must not stop the run; calls=%d", ai.calls)
	}
	if !degraded {
		t.Fatalf("degradation flag must be set")
	}

	for i, r := range reqs {
		got := out[r.Key]
		inFailedBatch := i >= 10 && i < 20
		if inFailedBatch {
			if !strings.HasPrefix(got, "Abstract body") {
				t.Fatalf("request %d should be fallback-derived, got %q", i, got)
			}
		} else if !strings.HasPrefix(got, "摘要") {
			t.Fatalf("request %d should be ai-derived, got %q", i, got)
		}
	}
}

func TestMalformedReplyDegradesBatch(t *testing.T) {
	t.Parallel()

	ai := &fakeAI{valid: true}
	ai.reply = func(call int, user string) (string, error) {
		if call == 1 {
			// valid JSON, wrong shape
			return `["a", "b", "c"]`, nil
		}
		return echoReply("摘要")(call, user)
	}
	reqs := makeRequests(15)

	out, degraded := New(ai, 0, nil).SummarizeBatch(context.Background(), reqs)

	if !degraded {
		t.Fatalf("degradation flag must be set")
	}
	if !strings.HasPrefix(out[reqs[0].Key], "Abstract body") {
		t.Fatalf("batch 1 should be fallback, got %q", out[reqs[0].Key])
	}
	if !strings.HasPrefix(out[reqs[14].Key], "摘要") {
		t.Fatalf("batch 2 should be unaffected, got %q", out[reqs[14].Key])
	}
}

func TestFencedReplyIsUnwrapped(t *testing.T) {
	t.Parallel()

	ai := &fakeAI{valid: true}
	ai.reply = func(call int, user string) (string, error) {
		raw, err := echoReply("摘要")(call, user)
		return "```json\n" + raw + "\n```", err
	}
	reqs := makeRequests(2)

	out, degraded := New(ai, 0, nil).SummarizeBatch(context.Background(), reqs)

	if degraded {
		t.Fatalf("fenced but valid reply must not degrade")
	}
	if out[reqs[0].Key] != "摘要"+reqs[0].Key {
		t.Fatalf("unexpected blurb: %q", out[reqs[0].Key])
	}
}

func TestEmptyValueDegradesSingleItem(t *testing.T) {
	t.Parallel()

	reqs := makeRequests(2)
	ai := &fakeAI{valid: true}
	ai.reply = func(_ int, _ string) (string, error) {
		raw, err := json.Marshal(map[string]string{
			reqs[0].Key: "   ",
			reqs[1].Key: "多行\n内容被\n折叠成一行",
		})
		return string(raw), err
	}

	out, degraded := New(ai, 0, nil).SummarizeBatch(context.Background(), reqs)

	if !degraded {
		t.Fatalf("empty value must set the degradation flag")
	}
	if !strings.HasPrefix(out[reqs[0].Key], "Abstract body") {
		t.Fatalf("empty value should fall back, got %q", out[reqs[0].Key])
	}
	if strings.Contains(out[reqs[1].Key], "\n") {
		t.Fatalf("line breaks must be collapsed: %q", out[reqs[1].Key])
	}
}

func TestBlurbRespectsRuneBudget(t *testing.T) {
	t.Parallel()

	reqs := makeRequests(1)
	ai := &fakeAI{valid: true}
	ai.reply = func(_ int, _ string) (string, error) {
		raw, err := json.Marshal(map[string]string{
			reqs[0].Key: strings.Repeat("长摘要内容", 50),
		})
		return string(raw), err
	}

	out, _ := New(ai, 100, nil).SummarizeBatch(context.Background(), reqs)

	if n := utf8.RuneCountInString(out[reqs[0].Key]); n != 100 {
		t.Fatalf("expected 100-rune blurb, got %d", n)
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{`{"a":"b"}`, `{"a":"b"}`},
		{"```json\n{\"a\":\"b\"}\n```", `{"a":"b"}`},
		{"```\n{\"a\":\"b\"}\n```", `{"a":"b"}`},
		{"prefix ```json\n{\"a\":\"b\"}\n``` suffix", `{"a":"b"}`},
	}
	for _, c := range cases {
		if got := extractJSON(c.in); got != c.want {
			t.Fatalf("extractJSON(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
