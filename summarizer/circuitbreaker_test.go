package summarizer_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sony/gobreaker/v2"

	"github.com/digestrelay/summarizer/summarizer"
)

var _ = Describe("CircuitBreaker", func() {
	var (
		ctx        context.Context
		innerCalls atomic.Int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		innerCalls.Store(0)
	})

	tripAfterThree := &summarizer.BreakerConfig{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}

	It("passes successful calls through untouched", func() {
		inner := adapterFunc(func(_ context.Context, _ summarizer.GenerateRequest) (string, error) {
			innerCalls.Add(1)
			return "a summary", nil
		})
		breaker := summarizer.NewBreakerAdapter(inner, nil, nil)

		text, err := breaker.Generate(ctx, summarizer.GenerateRequest{Prompt: "p"})
		Expect(err).ToNot(HaveOccurred())
		Expect(text).To(Equal("a summary"))
		Expect(breaker.Kind()).To(Equal(summarizer.ProviderKind("mock")))
	})

	It("opens after consecutive failures and fails fast as transient", func() {
		inner := adapterFunc(func(_ context.Context, _ summarizer.GenerateRequest) (string, error) {
			innerCalls.Add(1)
			return "", providerErr(summarizer.ErrorKindAuth, 401)
		})
		breaker := summarizer.NewBreakerAdapter(inner, tripAfterThree, nil)

		for i := 0; i < 3; i++ {
			_, err := breaker.Generate(ctx, summarizer.GenerateRequest{Prompt: "p"})
			Expect(summarizer.KindOf(err)).To(Equal(summarizer.ErrorKindAuth))
		}
		Expect(innerCalls.Load()).To(Equal(int64(3)))

		// Circuit is open: the backend is no longer consulted and the
		// rejection is classified transient so retries can resume later.
		_, err := breaker.Generate(ctx, summarizer.GenerateRequest{Prompt: "p"})
		Expect(summarizer.KindOf(err)).To(Equal(summarizer.ErrorKindTransient))
		Expect(innerCalls.Load()).To(Equal(int64(3)))
	})

	It("does not count rate-limited attempts as breaker failures", func() {
		inner := adapterFunc(func(_ context.Context, _ summarizer.GenerateRequest) (string, error) {
			innerCalls.Add(1)
			return "", providerErr(summarizer.ErrorKindRateLimited, 429)
		})
		breaker := summarizer.NewBreakerAdapter(inner, tripAfterThree, nil)

		for i := 0; i < 10; i++ {
			_, err := breaker.Generate(ctx, summarizer.GenerateRequest{Prompt: "p"})
			Expect(summarizer.KindOf(err)).To(Equal(summarizer.ErrorKindRateLimited))
		}
		// Backpressure never opened the circuit.
		Expect(innerCalls.Load()).To(Equal(int64(10)))
	})

	It("is wired in by the run config flag", func() {
		failing := newMockAdapter(func(_ string, _ int, _ summarizer.GenerateRequest) (string, error) {
			return "", providerErr(summarizer.ErrorKindPermanent, 400)
		})

		s, err := summarizer.NewWithAdapter(failing, summarizer.RunConfig{
			MaxConcurrent:        1,
			EnableCircuitBreaker: true,
			CircuitBreaker:       tripAfterThree,
		})
		Expect(err).ToNot(HaveOccurred())

		results, err := s.Summarize(ctx, makeDocs(5))
		Expect(err).ToNot(HaveOccurred())
		Expect(results).To(HaveLen(5))

		// Three failures tripped the breaker; later documents were
		// rejected without reaching the backend.
		Expect(failing.total()).To(Equal(3))
		for _, r := range results {
			Expect(r.Status).To(Equal(summarizer.StatusFailed))
		}
	})
})
