package quantconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

const (
	StrategyEquityChart = "Strategy Equity"
	EquitySeries        = "Equity"
)

var (
	ErrSeriesNotFound = errors.New("chart series not found")
	ErrEmptySeries    = errors.New("chart series has no points")
)

type LiveResult struct {
	Charts map[string]Chart `json:"Charts"`
}

type Chart struct {
	Name   string            `json:"Name"`
	Series map[string]Series `json:"Series"`
}

type Series struct {
	Name   string  `json:"Name"`
	Values []Point `json:"Values"`
}

// Point is one sample of a chart series. The API sends either {"x":t,"y":v}
// or, for candlestick series, [t, open, high, low, close].
type Point struct {
	X int64
	Y float64
}

func (p *Point) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []*float64
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode point: %w", err)
		}
		if len(raw) < 2 || raw[0] == nil || raw[len(raw)-1] == nil {
			return fmt.Errorf("decode point: malformed sample %s", data)
		}
		p.X = int64(*raw[0])
		p.Y = *raw[len(raw)-1]
		return nil
	}

	var obj struct {
		X int64   `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode point: %w", err)
	}
	p.X, p.Y = obj.X, obj.Y
	return nil
}

// LatestValue returns the value of the chronologically last point of a
// series. On equal timestamps the later sample wins.
func (r *LiveResult) LatestValue(chart, series string) (float64, error) {
	c, ok := r.Charts[chart]
	if !ok {
		return 0, fmt.Errorf("%w: chart %q", ErrSeriesNotFound, chart)
	}
	s, ok := c.Series[series]
	if !ok {
		return 0, fmt.Errorf("%w: %q in chart %q", ErrSeriesNotFound, series, chart)
	}
	if len(s.Values) == 0 {
		return 0, fmt.Errorf("%w: %q in chart %q", ErrEmptySeries, series, chart)
	}

	last := s.Values[0]
	for _, p := range s.Values[1:] {
		if p.X >= last.X {
			last = p
		}
	}
	return last.Y, nil
}

// ReadLive reads the result set of a live deployment.
func (c *Client) ReadLive(ctx context.Context, projectID int64, deployID string) (*LiveResult, error) {
	query := url.Values{}
	query.Set("projectId", strconv.FormatInt(projectID, 10))
	query.Set("deployId", deployID)

	var resp struct {
		LiveResults struct {
			Results *LiveResult `json:"results"`
		} `json:"LiveResults"`
	}
	if err := c.get(ctx, "live/read", query, &resp); err != nil {
		return nil, fmt.Errorf("read live algorithm %d/%s: %w", projectID, deployID, err)
	}
	if resp.LiveResults.Results == nil {
		return nil, fmt.Errorf("read live algorithm %d/%s: response has no results", projectID, deployID)
	}
	return resp.LiveResults.Results, nil
}
