package api

import (
	"context"
	"fmt"
	"net/url"
)

// GetChart fetches price history for one symbol.
func (c *Client) GetChart(ctx context.Context, symbol string, opts ChartOptions) (*ChartResult, error) {
	query := url.Values{}
	if opts.Range != "" {
		query.Set("range", opts.Range)
	}
	if opts.Interval != "" {
		query.Set("interval", opts.Interval)
	}

	var resp ChartResponse
	path := "/v8/finance/chart/" + url.PathEscape(symbol)
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("get chart %s: %w", symbol, err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("get chart %s: %s: %s", symbol, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return &ChartResult{Meta: ChartMeta{Symbol: symbol}}, nil
	}

	return &resp.Chart.Result[0], nil
}
