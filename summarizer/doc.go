// Package summarizer provides a concurrent, rate-limited batch dispatcher that
// turns an ordered collection of text documents into an ordered collection of
// model-generated summaries by calling one of several interchangeable remote
// text-generation backends.
//
// The package handles provider abstraction, fixed-window rate limiting, retry
// with exponential backoff driven by error classification, and a bounded
// worker pool that preserves input/output positional correspondence. Document
// acquisition, parsing, persistence, and delivery are all the caller's
// concern: the library receives documents and returns results, nothing more.
//
// Features:
//   - OpenAI-compatible (OpenAI, DeepSeek, Qwen, ByteDance) and Anthropic
//     provider adapters behind one interface, selected via an explicit registry
//   - Bounded concurrency with index-preserving result assembly
//   - Fixed-window requests-per-minute limiting shared across workers
//   - Error classification into a closed set of kinds driving retry decisions
//   - Optional circuit breaker around any provider adapter
//   - Prometheus metrics integration
//
// Basic usage:
//
//	cfg := summarizer.NewDefaultConfig(summarizer.ProviderOpenAI, os.Getenv("OPENAI_API_KEY"))
//	s, err := summarizer.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	results, err := s.Summarize(ctx, docs)
package summarizer
