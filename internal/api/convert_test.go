package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBars(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantTimes []int64
		wantClose []string
	}{
		{
			name:      "rounds closes to four places",
			body:      vixChart,
			wantTimes: []int64{1760647800, 1760734800},
			wantClose: []string{"18.12", "17.21"},
		},
		{
			name: "skips null closes",
			body: `{"chart":{"result":[{"timestamp":[100,200,300],
				"indicators":{"quote":[{"close":[15.5,null,16.25]}]}}],"error":null}}`,
			wantTimes: []int64{100, 300},
			wantClose: []string{"15.5", "16.25"},
		},
		{
			name: "mismatched lengths use the shorter",
			body: `{"chart":{"result":[{"timestamp":[100,200],
				"indicators":{"quote":[{"close":[15.5]}]}}],"error":null}}`,
			wantTimes: []int64{100},
			wantClose: []string{"15.5"},
		},
		{
			name:      "no quote indicators",
			body:      `{"chart":{"result":[{"timestamp":[100],"indicators":{"quote":[]}}],"error":null}}`,
			wantTimes: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ChartResponse
			if err := json.Unmarshal([]byte(tt.body), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			bars := resp.Chart.Result[0].Bars()

			if len(bars) != len(tt.wantTimes) {
				t.Fatalf("len(Bars()) = %d, want %d", len(bars), len(tt.wantTimes))
			}
			for i, bar := range bars {
				if !bar.Time.Equal(time.Unix(tt.wantTimes[i], 0)) {
					t.Errorf("bar %d Time = %v, want %v", i, bar.Time, time.Unix(tt.wantTimes[i], 0).UTC())
				}
				if !bar.Close.Equal(decimal.RequireFromString(tt.wantClose[i])) {
					t.Errorf("bar %d Close = %s, want %s", i, bar.Close, tt.wantClose[i])
				}
				if bar.Time.Location() != time.UTC {
					t.Errorf("bar %d Time should be UTC", i)
				}
			}
		})
	}
}

func TestLastBar(t *testing.T) {
	var resp ChartResponse
	if err := json.Unmarshal([]byte(vixChart), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	bar, ok := resp.Chart.Result[0].LastBar()
	if !ok {
		t.Fatal("LastBar() ok = false, want true")
	}
	if bar.Time.Unix() != 1760734800 {
		t.Errorf("Time = %d, want %d", bar.Time.Unix(), 1760734800)
	}
	if !bar.Close.Equal(decimal.RequireFromString("17.21")) {
		t.Errorf("Close = %s, want 17.21", bar.Close)
	}

	empty := &ChartResult{}
	if _, ok := empty.LastBar(); ok {
		t.Error("LastBar() on empty result ok = true, want false")
	}
}
