package summarizer_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/digestrelay/summarizer/summarizer"
)

func makeDocs(n int) []summarizer.Document {
	docs := make([]summarizer.Document, n)
	for i := range docs {
		docs[i] = summarizer.Document{
			ID:   fmt.Sprintf("doc-%d", i+1),
			Text: fmt.Sprintf("body of document %d", i+1),
		}
	}
	return docs
}

var _ = Describe("Dispatcher", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("order preservation", func() {
		It("returns results in input order regardless of completion order", func() {
			mock := succeedingAdapter()
			mock.delay = 2 * time.Millisecond

			s, err := summarizer.NewWithAdapter(mock, summarizer.RunConfig{MaxConcurrent: 8})
			Expect(err).ToNot(HaveOccurred())

			docs := makeDocs(25)
			results, err := s.Summarize(ctx, docs)
			Expect(err).ToNot(HaveOccurred())
			Expect(results).To(HaveLen(len(docs)))

			for i, r := range results {
				Expect(r.Index).To(Equal(i))
				Expect(r.DocumentID).To(Equal(docs[i].ID))
				Expect(r.Status).To(Equal(summarizer.StatusSuccess))
				Expect(r.Summary).To(Equal("summary of " + docs[i].ID))
			}
		})
	})

	Describe("concurrency bound", func() {
		It("never exceeds MaxConcurrent simultaneous provider calls", func() {
			mock := succeedingAdapter()
			mock.delay = 5 * time.Millisecond

			s, err := summarizer.NewWithAdapter(mock, summarizer.RunConfig{
				MaxConcurrent: 3,
				EnableMetrics: true,
			})
			Expect(err).ToNot(HaveOccurred())

			results, err := s.Summarize(ctx, makeDocs(20))
			Expect(err).ToNot(HaveOccurred())
			Expect(results).To(HaveLen(20))
			Expect(mock.peakInFlight()).To(BeNumerically("<=", 3))
		})
	})

	Describe("retry behavior", func() {
		It("invokes the adapter exactly attempts+1 times for persistent transient errors", func() {
			mock := newMockAdapter(func(_ string, _ int, _ summarizer.GenerateRequest) (string, error) {
				return "", providerErr(summarizer.ErrorKindTransient, 503)
			})

			s, err := summarizer.NewWithAdapter(mock, summarizer.RunConfig{
				MaxConcurrent:  1,
				RetryAttempts:  2,
				RetryBaseDelay: time.Millisecond,
			})
			Expect(err).ToNot(HaveOccurred())

			results, err := s.Summarize(ctx, makeDocs(1))
			Expect(err).ToNot(HaveOccurred())
			Expect(mock.attempts("doc-1")).To(Equal(3))
			Expect(results[0].Status).To(Equal(summarizer.StatusFailed))
			Expect(results[0].ErrorKind).To(Equal(summarizer.ErrorKindTransient))
			Expect(results[0].Err).To(HaveOccurred())
		})

		It("fails immediately on auth errors without consuming retry budget", func() {
			mock := newMockAdapter(func(_ string, _ int, _ summarizer.GenerateRequest) (string, error) {
				return "", providerErr(summarizer.ErrorKindAuth, 401)
			})

			s, err := summarizer.NewWithAdapter(mock, summarizer.RunConfig{
				MaxConcurrent:  1,
				RetryAttempts:  5,
				RetryBaseDelay: time.Millisecond,
			})
			Expect(err).ToNot(HaveOccurred())

			results, err := s.Summarize(ctx, makeDocs(1))
			Expect(err).ToNot(HaveOccurred())
			Expect(mock.attempts("doc-1")).To(Equal(1))
			Expect(results[0].Status).To(Equal(summarizer.StatusFailed))
			Expect(results[0].ErrorKind).To(Equal(summarizer.ErrorKindAuth))
		})

		It("fails rate-limited attempts immediately when retry-on-rate-limit is off", func() {
			mock := newMockAdapter(func(_ string, _ int, _ summarizer.GenerateRequest) (string, error) {
				return "", providerErr(summarizer.ErrorKindRateLimited, 429)
			})

			s, err := summarizer.NewWithAdapter(mock, summarizer.RunConfig{
				MaxConcurrent:  1,
				RetryAttempts:  5,
				RetryBaseDelay: time.Millisecond,
			})
			Expect(err).ToNot(HaveOccurred())

			results, err := s.Summarize(ctx, makeDocs(1))
			Expect(err).ToNot(HaveOccurred())
			Expect(mock.attempts("doc-1")).To(Equal(1))
			Expect(results[0].ErrorKind).To(Equal(summarizer.ErrorKindRateLimited))
		})

		It("recovers a rate-limited document after one backoff", func() {
			// Five documents across two workers; document 3 is rate
			// limited once, then succeeds. Everything else succeeds on
			// the first attempt.
			mock := newMockAdapter(func(docID string, attempt int, _ summarizer.GenerateRequest) (string, error) {
				if docID == "doc-3" && attempt == 1 {
					return "", providerErr(summarizer.ErrorKindRateLimited, 429)
				}
				return "summary of " + docID, nil
			})

			const baseDelay = 30 * time.Millisecond
			s, err := summarizer.NewWithAdapter(mock, summarizer.RunConfig{
				MaxConcurrent:    2,
				RetryAttempts:    3,
				RetryBaseDelay:   baseDelay,
				RetryOnRateLimit: true,
			})
			Expect(err).ToNot(HaveOccurred())

			docs := makeDocs(5)
			start := time.Now()
			results, err := s.Summarize(ctx, docs)
			elapsed := time.Since(start)

			Expect(err).ToNot(HaveOccurred())
			for i, r := range results {
				Expect(r.Status).To(Equal(summarizer.StatusSuccess), "document %d", i+1)
				Expect(r.DocumentID).To(Equal(docs[i].ID))
			}
			Expect(mock.attempts("doc-3")).To(Equal(2))
			Expect(mock.attempts("doc-1")).To(Equal(1))
			// One backoff of the base delay, and not a second one.
			Expect(elapsed).To(BeNumerically(">=", baseDelay))
			Expect(elapsed).To(BeNumerically("<", 4*baseDelay))
		})
	})

	Describe("empty document text", func() {
		It("still invokes the adapter and reports the backend's verdict", func() {
			mock := newMockAdapter(func(_ string, _ int, _ summarizer.GenerateRequest) (string, error) {
				return "", providerErr(summarizer.ErrorKindPermanent, 400)
			})

			s, err := summarizer.NewWithAdapter(mock, summarizer.RunConfig{MaxConcurrent: 1})
			Expect(err).ToNot(HaveOccurred())

			results, err := s.Summarize(ctx, []summarizer.Document{{ID: "empty-doc", Text: ""}})
			Expect(err).ToNot(HaveOccurred())
			Expect(mock.attempts("empty-doc")).To(Equal(1))
			Expect(results[0].Status).To(Equal(summarizer.StatusFailed))
			Expect(results[0].ErrorKind).To(Equal(summarizer.ErrorKindPermanent))
		})
	})

	Describe("per-document isolation", func() {
		It("keeps other documents unaffected by one document's failure", func() {
			mock := newMockAdapter(func(docID string, _ int, _ summarizer.GenerateRequest) (string, error) {
				if docID == "doc-2" {
					return "", providerErr(summarizer.ErrorKindAuth, 403)
				}
				return "summary of " + docID, nil
			})

			s, err := summarizer.NewWithAdapter(mock, summarizer.RunConfig{MaxConcurrent: 4})
			Expect(err).ToNot(HaveOccurred())

			results, err := s.Summarize(ctx, makeDocs(4))
			Expect(err).ToNot(HaveOccurred())

			Expect(results[1].Status).To(Equal(summarizer.StatusFailed))
			for _, i := range []int{0, 2, 3} {
				Expect(results[i].Status).To(Equal(summarizer.StatusSuccess), "document %d", i+1)
			}
		})
	})

	Describe("batch deadline", func() {
		It("skips tasks not started before the deadline without calling the backend", func() {
			mock := succeedingAdapter()
			mock.delay = 100 * time.Millisecond

			s, err := summarizer.NewWithAdapter(mock, summarizer.RunConfig{
				MaxConcurrent: 1,
				BatchTimeout:  150 * time.Millisecond,
			})
			Expect(err).ToNot(HaveOccurred())

			docs := makeDocs(3)
			results, err := s.Summarize(ctx, docs)
			Expect(err).ToNot(HaveOccurred())
			Expect(results).To(HaveLen(3))

			succeeded, skipped := 0, 0
			for i, r := range results {
				Expect(r.DocumentID).To(Equal(docs[i].ID))
				switch r.Status {
				case summarizer.StatusSuccess:
					succeeded++
				case summarizer.StatusFailed:
					Expect(r.ErrorKind).To(Equal(summarizer.ErrorKindDeadline))
					Expect(r.Err).To(MatchError(summarizer.ErrBatchDeadlineExceeded))
					Expect(mock.attempts(r.DocumentID)).To(BeZero())
					skipped++
				}
			}
			Expect(succeeded).To(Equal(2))
			Expect(skipped).To(Equal(1))
		})
	})

	Describe("prompt construction", func() {
		It("embeds the document text and honors hints", func() {
			var seen summarizer.GenerateRequest
			mock := newMockAdapter(func(_ string, _ int, req summarizer.GenerateRequest) (string, error) {
				seen = req
				return "ok", nil
			})

			s, err := summarizer.NewWithAdapter(mock, summarizer.RunConfig{MaxConcurrent: 1})
			Expect(err).ToNot(HaveOccurred())

			_, err = s.Summarize(ctx, []summarizer.Document{{
				ID:   "hinted-doc",
				Text: "a very important finding",
				Hints: &summarizer.GenerationHints{
					MaxTokens: 256,
					Style:     "executive briefing",
				},
			}})
			Expect(err).ToNot(HaveOccurred())
			Expect(seen.Prompt).To(ContainSubstring("a very important finding"))
			Expect(seen.Prompt).To(ContainSubstring("executive briefing"))
			Expect(seen.MaxTokens).To(Equal(256))
		})

		It("supports a custom prompt template", func() {
			var seen summarizer.GenerateRequest
			mock := newMockAdapter(func(_ string, _ int, req summarizer.GenerateRequest) (string, error) {
				seen = req
				return "ok", nil
			})

			s, err := summarizer.NewWithAdapter(mock, summarizer.RunConfig{
				MaxConcurrent:  1,
				PromptTemplate: "TLDR please. Document ID: {{.ID}}\n{{.Text}}",
			})
			Expect(err).ToNot(HaveOccurred())

			_, err = s.Summarize(ctx, []summarizer.Document{{ID: "short-doc", Text: "hello"}})
			Expect(err).ToNot(HaveOccurred())
			Expect(seen.Prompt).To(HavePrefix("TLDR please."))
			Expect(seen.Prompt).To(ContainSubstring("hello"))
		})
	})

	Describe("shared rate limiter", func() {
		It("uses an injected limiter across the batch", func() {
			clock := newFakeClock()
			limiter := summarizer.NewTestRateLimiter(2, clock.now, clock.sleep)

			mock := succeedingAdapter()
			s, err := summarizer.NewWithAdapter(mock, summarizer.RunConfig{MaxConcurrent: 1},
				summarizer.WithRateLimiter(limiter))
			Expect(err).ToNot(HaveOccurred())

			results, err := s.Summarize(ctx, makeDocs(5))
			Expect(err).ToNot(HaveOccurred())
			Expect(results).To(HaveLen(5))
			for _, r := range results {
				Expect(r.Status).To(Equal(summarizer.StatusSuccess))
			}
			// Five admissions through a two-per-window limiter needs two
			// window rollovers.
			Expect(clock.sleepCount()).To(BeNumerically(">=", 2))
		})
	})
})
