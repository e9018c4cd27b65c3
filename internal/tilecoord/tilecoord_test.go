package tilecoord

import "testing"

func TestBound_RootTileCoversWholeMercatorRange(t *testing.T) {
	b := Bound(0, 0, 0)
	if b.Left() != -180 || b.Right() != 180 {
		t.Errorf("expected root tile to span -180..180 longitude, got %v..%v", b.Left(), b.Right())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		z, x, y    int
		wantErr    bool
	}{
		{"valid", 14, 8362, 5956, false},
		{"negative zoom", -1, 0, 0, true},
		{"zoom too high", 25, 0, 0, true},
		{"x out of range", 1, 2, 0, true},
		{"y out of range", 1, 0, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.z, tt.x, tt.y)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%d,%d,%d) error = %v, wantErr %v", tt.z, tt.x, tt.y, err, tt.wantErr)
			}
		})
	}
}

func TestPixelBoundToWGS84_CornersMapToTileBound(t *testing.T) {
	tb := Bound(1, 0, 0)
	got := PixelBoundToWGS84(tb, 4096, 0, 0, 4096, 4096)
	if got.Left() != tb.Left() || got.Right() != tb.Right() {
		t.Errorf("expected full-extent box to reproduce tile longitude bounds, got %v", got)
	}
	if got.Top() != tb.Top() || got.Bottom() != tb.Bottom() {
		t.Errorf("expected full-extent box to reproduce tile latitude bounds, got %v", got)
	}
}
