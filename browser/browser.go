package browser

import (
	"context"
	"time"
)

// Key identifies a keyboard key sent to a page
type Key string

const (
	KeyEnter  Key = "Enter"
	KeyEscape Key = "Escape"
	KeyTab    Key = "Tab"
)

// PageHandle is one browser tab. Every call blocks until the browser answers,
// the timeout elapses or ctx is done.
type PageHandle interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	// Fill clears the first element matching selector and types text into it
	Fill(ctx context.Context, selector, text string, timeout time.Duration) error
	PressKey(ctx context.Context, key Key) error
	// Evaluate runs a JavaScript expression and returns its value as JSON text
	Evaluate(ctx context.Context, expr string) (string, error)
	// Content returns the rendered HTML of the page
	Content(ctx context.Context) (string, error)
	Close() error
}

// Browser opens tabs that share one browsing context
type Browser interface {
	NewPage(ctx context.Context) (PageHandle, error)
	Close() error
}
