package service

import (
	"context"
	"errors"
)

// DocumentChain implements DocumentLoader by trying multiple loaders in order.
// A loader that answers ErrNotFound passes the request to the next one; any
// other error stops the chain.
type DocumentChain struct {
	loaders []DocumentLoader
}

// NewDocumentChain creates a new document chain.
func NewDocumentChain(loaders ...DocumentLoader) *DocumentChain {
	return &DocumentChain{loaders: loaders}
}

// FetchManifest tries each loader until one succeeds.
func (c *DocumentChain) FetchManifest(ctx context.Context) ([]byte, error) {
	return c.fetch(func(l DocumentLoader) ([]byte, error) {
		return l.FetchManifest(ctx)
	})
}

// FetchPayload tries each loader until one succeeds.
func (c *DocumentChain) FetchPayload(ctx context.Context, name string) ([]byte, error) {
	return c.fetch(func(l DocumentLoader) ([]byte, error) {
		return l.FetchPayload(ctx, name)
	})
}

func (c *DocumentChain) fetch(fn func(DocumentLoader) ([]byte, error)) ([]byte, error) {
	for _, loader := range c.loaders {
		data, err := fn(loader)
		if err == nil {
			return data, nil
		}
		// Continue to next loader if not found
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// Add appends a loader to the chain.
func (c *DocumentChain) Add(loader DocumentLoader) {
	c.loaders = append(c.loaders, loader)
}

// --- Evaluator set ---

// Evaluators indexes dependency evaluators by resource type.
type Evaluators map[string]DependencyEvaluator

// NewEvaluators builds the index. A later evaluator for the same resource
// type replaces an earlier one.
func NewEvaluators(evals ...DependencyEvaluator) Evaluators {
	m := make(Evaluators, len(evals))
	for _, e := range evals {
		m[e.ResourceType()] = e
	}
	return m
}

// For returns the evaluator registered for resourceType.
func (e Evaluators) For(resourceType string) (DependencyEvaluator, bool) {
	ev, ok := e[resourceType]
	return ev, ok
}

// --- Null implementations ---

// NullDocumentLoader finds nothing.
type NullDocumentLoader struct{}

// FetchManifest always returns ErrNotFound.
func (NullDocumentLoader) FetchManifest(_ context.Context) ([]byte, error) {
	return nil, ErrNotFound
}

// FetchPayload always returns ErrNotFound.
func (NullDocumentLoader) FetchPayload(_ context.Context, _ string) ([]byte, error) {
	return nil, ErrNotFound
}
