package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/scriptorium/scriptor/internal/model"
	"github.com/scriptorium/scriptor/internal/prepare"
)

// Generator produces one prepared passage per request. Satisfied by
// *prepare.Preparer.
type Generator interface {
	Prepare(ctx context.Context, req prepare.PrepareRequest) (*model.PrepareResult, error)
}

// PrepareJob generates a single passage.
type PrepareJob struct {
	Request   prepare.PrepareRequest
	Generator Generator
}

// Execute runs the generation; each job is one independent transaction.
func (j *PrepareJob) Execute(ctx context.Context) Result {
	result, err := j.Generator.Prepare(ctx, j.Request)
	return &PrepareOutcome{
		Topic:  j.Request.Topic,
		Result: result,
		Error:  err,
	}
}

// PrepareOutcome is the result of one batch generation job.
type PrepareOutcome struct {
	Topic  string
	Result *model.PrepareResult
	Error  error
}

// GetError returns the error from the outcome.
func (o *PrepareOutcome) GetError() error {
	return o.Error
}

// BatchProcessor generates passages for many topics concurrently. Each
// topic is processed independently; one failure never aborts the batch.
type BatchProcessor struct {
	generator   Generator
	concurrency int
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(generator Generator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		generator:   generator,
		concurrency: concurrency,
	}
}

// ProcessRequests generates all requests concurrently and returns one
// outcome per request, in completion order.
func (b *BatchProcessor) ProcessRequests(ctx context.Context, requests []prepare.PrepareRequest) []*PrepareOutcome {
	if len(requests) == 0 {
		return []*PrepareOutcome{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, req := range requests {
		pool.Submit(&PrepareJob{
			Request:   req,
			Generator: b.generator,
		})
	}

	results := pool.Wait()

	outcomes := make([]*PrepareOutcome, len(results))
	for i, result := range results {
		outcomes[i] = result.(*PrepareOutcome)
	}
	return outcomes
}

// ProcessFile reads topics from a file and generates them concurrently.
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*PrepareOutcome, error) {
	requests, err := ReadRequestsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read topics: %w", err)
	}
	return b.ProcessRequests(ctx, requests), nil
}

// ReadRequestsFromFile reads generation requests from a file, one per
// line. A line is either a bare topic or "topic | source-url". Empty
// lines and #-comments are skipped; duplicate topics are dropped.
func ReadRequestsFromFile(filePath string) ([]prepare.PrepareRequest, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var requests []prepare.PrepareRequest
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		req := prepare.PrepareRequest{Topic: line}
		if topic, url, found := strings.Cut(line, "|"); found {
			req.Topic = strings.TrimSpace(topic)
			req.SourceURL = strings.TrimSpace(url)
		}
		if req.Topic == "" {
			continue
		}

		if !seen[req.Topic] {
			seen[req.Topic] = true
			requests = append(requests, req)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return requests, nil
}
