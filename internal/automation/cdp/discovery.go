// Package cdp implements client-side consumption of a Chromium
// DevTools Protocol endpoint (spec §1 non-goal: "implementing the CDP
// protocol wire format beyond client-side consumption" — so this
// package only discovers targets and forwards raw commands/events,
// it never models individual CDP domains).
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Target is one inspectable page discovered via the /json endpoint.
type Target struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// VersionInfo is the /json/version response.
type VersionInfo struct {
	Browser         string `json:"Browser"`
	ProtocolVersion string `json:"Protocol-Version"`
	WebKitVersion   string `json:"WebKit-Version"`
	WebSocketURL    string `json:"webSocketDebuggerUrl"`
}

// Discovery queries a local DevTools HTTP endpoint for targets and
// version info.
type Discovery struct {
	client *http.Client
	addr   string // "127.0.0.1:<port>"
}

// NewDiscovery builds a Discovery pointed at the DevTools HTTP
// endpoint on addr (host:port).
func NewDiscovery(addr string) *Discovery {
	return &Discovery{client: &http.Client{Timeout: 5 * time.Second}, addr: addr}
}

// Version fetches /json/version.
func (d *Discovery) Version(ctx context.Context) (*VersionInfo, error) {
	var info VersionInfo
	if err := d.getJSON(ctx, "/json/version", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Targets fetches /json and filters to the requested target type
// ("page" for ordinary tabs); pass "" for all types.
func (d *Discovery) Targets(ctx context.Context, targetType string) ([]Target, error) {
	var all []Target
	if err := d.getJSON(ctx, "/json", &all); err != nil {
		return nil, err
	}
	if targetType == "" {
		return all, nil
	}
	filtered := all[:0]
	for _, t := range all {
		if t.Type == targetType {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

func (d *Discovery) getJSON(ctx context.Context, path string, out any) error {
	url := fmt.Sprintf("http://%s%s", d.addr, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("cdp: connect to %s: %w", d.addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cdp: unexpected status %d from %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
