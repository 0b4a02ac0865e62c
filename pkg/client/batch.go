package client

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// Result is one answer of a batch.
type Result struct {
	Question string
	Answer   string
	Err      error
}

// AskAll answers questions concurrently, at most batch.concurrency at a
// time, and returns results in input order.
func (c *Client) AskAll(ctx context.Context, v Variant, questions []string, useCache bool) []Result {
	results := make([]Result, len(questions))
	p := pool.New().WithMaxGoroutines(c.batchConcurrency)
	for i, q := range questions {
		p.Go(func() {
			out, err := c.AskVariant(ctx, v, q, useCache)
			results[i] = Result{Question: q, Answer: out, Err: err}
		})
	}
	p.Wait()
	return results
}
