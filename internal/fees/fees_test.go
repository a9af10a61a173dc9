package fees

import (
	"testing"

	"backtest-engine/internal/models"
)

func TestApplySlippageZeroPct(t *testing.T) {
	if got := ApplySlippage(100, models.LONG, 0, DirectionEntry); got != 100 {
		t.Fatalf("expected no-op at pct<=0, got %v", got)
	}
	if got := ApplySlippage(100, models.LONG, -5, DirectionEntry); got != 100 {
		t.Fatalf("expected no-op at negative pct, got %v", got)
	}
}

func TestApplySlippageDirectionSign(t *testing.T) {
	cases := []struct {
		name      string
		side      models.Side
		direction Direction
		wantUp    bool
	}{
		{"long entry up", models.LONG, DirectionEntry, true},
		{"long exit down", models.LONG, DirectionExit, false},
		{"short entry down", models.SHORT, DirectionEntry, false},
		{"short exit up", models.SHORT, DirectionExit, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ApplySlippage(100, tc.side, 1, tc.direction)
			if tc.wantUp && got <= 100 {
				t.Fatalf("expected price above 100, got %v", got)
			}
			if !tc.wantUp && got >= 100 {
				t.Fatalf("expected price below 100, got %v", got)
			}
		})
	}
}

func TestCommission(t *testing.T) {
	if got := Commission(100, 2, 0.1); got != 0.2 {
		t.Fatalf("expected 0.2, got %v", got)
	}
	if got := Commission(100, 2, 0); got != 0 {
		t.Fatalf("expected 0 commission at pct=0, got %v", got)
	}
}
