// Package browser models the page and environment a wallet session runs in when the
// host is driven remotely: navigations and URL rewrites are recorded for the caller
// to apply instead of happening in-process.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/pipfun/walletlink/ports"
)

// Page is a recorded top-level document
type Page struct {
	mu         sync.Mutex
	location   *url.URL
	navigateTo string
	replaced   bool
}

// NewPage parses rawURL as the current location
func NewPage(rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("page url must be absolute: %s", rawURL)
	}
	return &Page{location: u}, nil
}

var _ ports.Page = (*Page)(nil)

func (p *Page) Location() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := *p.location
	return &u
}

// Navigate records target; the first navigation wins
func (p *Page) Navigate(_ context.Context, target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.navigateTo == "" {
		p.navigateTo = target
	}
	return nil
}

func (p *Page) ReplaceURL(_ context.Context, target string) error {
	u, err := p.location.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid replacement url: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = u
	p.replaced = true
	return nil
}

// Navigation returns the recorded navigation target, empty when none
func (p *Page) Navigation() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.navigateTo
}

// Replaced returns the rewritten URL when ReplaceURL was called
func (p *Page) Replaced() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location.String(), p.replaced
}
