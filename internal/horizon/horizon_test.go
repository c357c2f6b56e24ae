package horizon

import (
	"testing"
	"time"
)

func TestGenerate_Length(t *testing.T) {
	starts := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
		time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC),
	}

	for _, now := range starts {
		t.Run(now.Format(time.DateOnly), func(t *testing.T) {
			ids := Generate(now, 9)
			if len(ids) != 9 {
				t.Fatalf("len = %d, want 9", len(ids))
			}
			for i := 1; i < len(ids); i++ {
				if ids[i].Month < ids[i-1].Month {
					t.Errorf("ids[%d].Month = %s < ids[%d].Month = %s", i, ids[i].Month, i-1, ids[i-1].Month)
				}
			}
		})
	}
}

func TestGenerate_Sequence(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	ids := Generate(now, 9)

	want := []string{"202610", "202611", "202612", "202701", "202702", "202703", "202704", "202705", "202706"}
	for i, id := range ids {
		if id.Month != want[i] {
			t.Errorf("ids[%d].Month = %s, want %s", i, id.Month, want[i])
		}
		if id.Symbol != "VX"+want[i] {
			t.Errorf("ids[%d].Symbol = %s, want VX%s", i, id.Symbol, want[i])
		}
	}
}

func TestGenerate_ThirtyDayApproximation(t *testing.T) {
	t.Run("repeats a 31-day month", func(t *testing.T) {
		// Jan 1 + 30 days is still January.
		ids := Generate(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 3)
		got := []string{ids[0].Month, ids[1].Month, ids[2].Month}
		want := []string{"202601", "202601", "202603"}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("months = %v, want %v", got, want)
				break
			}
		}
	})

	t.Run("skips February", func(t *testing.T) {
		// Jan 31 + 30 days lands in March.
		ids := Generate(time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), 2)
		if ids[1].Month != "202603" {
			t.Errorf("ids[1].Month = %s, want 202603", ids[1].Month)
		}
	})
}

func TestGenerate_YearRollover(t *testing.T) {
	ids := Generate(time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC), 2)
	if ids[0].Month != "202612" || ids[1].Month != "202701" {
		t.Errorf("months = [%s %s], want [202612 202701]", ids[0].Month, ids[1].Month)
	}
}

func TestNewGenerator(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		g := NewGenerator("", 0)
		if g.Root != DefaultRoot || g.Months != DefaultMonths {
			t.Errorf("NewGenerator(\"\", 0) = %+v, want root %s months %d", g, DefaultRoot, DefaultMonths)
		}
	})

	t.Run("custom root", func(t *testing.T) {
		g := NewGenerator("VXM", 2)
		ids := g.Generate(time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC))
		if len(ids) != 2 {
			t.Fatalf("len = %d, want 2", len(ids))
		}
		if ids[0].Symbol != "VXM202605" {
			t.Errorf("ids[0].Symbol = %s, want VXM202605", ids[0].Symbol)
		}
	})
}
