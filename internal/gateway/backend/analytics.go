package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Metrics is one exchange/symbol row of the analytics snapshot. Consumed
// for display only; never written back.
type Metrics struct {
	Delta    float64 `json:"delta"`
	Vol      float64 `json:"vol"`
	Trade    float64 `json:"trade"`
	NATR     float64 `json:"NATR"`
	Spread   float64 `json:"spread"`
	Activity float64 `json:"activity"`
}

// FetchAnalytics reads the aggregate analytics snapshot, keyed
// exchange → symbol → metrics. The producer is a separate process and not
// entirely consistent about numeric types (numbers sometimes arrive as
// strings), so the parse is tolerant rather than strict.
func (c *Client) FetchAnalytics(ctx context.Context) (map[string]map[string]Metrics, error) {
	raw, err := c.rawGet(ctx, "/api/data")
	if err != nil {
		return nil, &SyncError{Op: "analytics", Err: err}
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return map[string]map[string]Metrics{}, nil
	}
	out := make(map[string]map[string]Metrics)
	parsed.ForEach(func(exchange, symbols gjson.Result) bool {
		if !symbols.IsObject() {
			return true
		}
		row := make(map[string]Metrics)
		symbols.ForEach(func(sym, m gjson.Result) bool {
			row[sym.String()] = Metrics{
				Delta:    m.Get("delta").Float(),
				Vol:      m.Get("vol").Float(),
				Trade:    m.Get("trade").Float(),
				NATR:     m.Get("NATR").Float(),
				Spread:   m.Get("spread").Float(),
				Activity: m.Get("activity").Float(),
			}
			return true
		})
		out[exchange.String()] = row
		return true
	})
	return out, nil
}

func (c *Client) rawGet(ctx context.Context, path string) ([]byte, error) {
	endpoint, err := c.resolveEndpoint(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend call failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("backend returned %s", resp.Status)
	}
	return readAll(resp)
}
