package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const targetTypePage = "page"

// Target is one entry from the debug endpoint's /json listing.
type Target struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	URL                  string `json:"url"`
	Title                string `json:"title"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Resolver picks a browsing context from the debug endpoint listing.
type Resolver struct {
	base   string
	client *http.Client
}

func NewResolver(base string) *Resolver {
	return &Resolver{base: strings.TrimSuffix(base, "/"), client: http.DefaultClient}
}

// ── Resolution errors ──────────────────────────────────────

var errNoPageTargets = fmt.Errorf("No page targets found")

// noMatchingTargetError enumerates every candidate URL that existed at
// resolution time, to aid diagnosis.
type noMatchingTargetError struct {
	Filter    string
	Available []string
}

func (e *noMatchingTargetError) Error() string {
	return fmt.Sprintf("No tab matching '%s'. Available: %v", e.Filter, e.Available)
}

type missingEndpointError struct {
	URL string
}

func (e *missingEndpointError) Error() string {
	return fmt.Sprintf("No webSocketDebuggerUrl for %s", e.URL)
}

// ── Listing + selection ────────────────────────────────────

// ListTargets fetches the full target listing and keeps page-kind entries,
// in listing order.
func (r *Resolver) ListTargets(ctx context.Context) ([]Target, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/json", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list targets: endpoint returned %d", resp.StatusCode)
	}

	var all []Target
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}

	pages := make([]Target, 0, len(all))
	for _, t := range all {
		if t.Type == targetTypePage {
			pages = append(pages, t)
		}
	}
	return pages, nil
}

// Resolve selects a page target, optionally by case-insensitive URL
// substring, and returns its event endpoint and URL. First match in
// listing order wins. No retries; failure reports immediately.
func (r *Resolver) Resolve(ctx context.Context, filter string) (wsURL, pageURL string, err error) {
	pages, err := r.ListTargets(ctx)
	if err != nil {
		return "", "", err
	}

	var selected *Target
	if filter != "" {
		needle := strings.ToLower(filter)
		for i := range pages {
			if strings.Contains(strings.ToLower(pages[i].URL), needle) {
				selected = &pages[i]
				break
			}
		}
		if selected == nil {
			urls := make([]string, 0, len(pages))
			for _, t := range pages {
				urls = append(urls, t.URL)
			}
			return "", "", &noMatchingTargetError{Filter: filter, Available: urls}
		}
	} else {
		if len(pages) == 0 {
			return "", "", errNoPageTargets
		}
		selected = &pages[0]
	}

	if selected.WebSocketDebuggerURL == "" {
		return "", "", &missingEndpointError{URL: selected.URL}
	}
	return selected.WebSocketDebuggerURL, selected.URL, nil
}
