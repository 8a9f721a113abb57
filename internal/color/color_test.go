// SPDX-License-Identifier: MIT
package color

import "testing"

func TestNewClampsChannels(t *testing.T) {
	c := New(255, 10, 255)
	if c.R != MaxChannel || c.G != 10 || c.B != MaxChannel {
		t.Errorf("New(255, 10, 255) = %v, want FE0AFE", c)
	}
}

func TestMixEndpoints(t *testing.T) {
	tests := []struct {
		name   string
		factor float64
		want   Color
	}{
		{"zero", 0, Blue},
		{"one", 1, Red},
		{"below", -0.5, Blue},
		{"above", 3, Red},
		{"half", 0.5, Color{127, 0, 127}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Blue.Mix(Red, tt.factor); got != tt.want {
				t.Errorf("Blue.Mix(Red, %v) = %v, want %v", tt.factor, got, tt.want)
			}
		})
	}
}

func TestBrightness(t *testing.T) {
	tests := []struct {
		factor float64
		want   Color
	}{
		{1, White},
		{0, Black},
		{0.5, Color{127, 127, 127}},
		{2, White},
		{-1, Black},
	}

	for _, tt := range tests {
		if got := White.Brightness(tt.factor); got != tt.want {
			t.Errorf("White.Brightness(%v) = %v, want %v", tt.factor, got, tt.want)
		}
	}
}

func TestAppendOrder(t *testing.T) {
	c := Color{1, 2, 3}

	grb := c.Append(nil, GRB)
	if grb[0] != 2 || grb[1] != 1 || grb[2] != 3 {
		t.Errorf("GRB append = %v, want [2 1 3]", grb)
	}

	rgb := c.Append(nil, RGB)
	if rgb[0] != 1 || rgb[1] != 2 || rgb[2] != 3 {
		t.Errorf("RGB append = %v, want [1 2 3]", rgb)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{"blue", Blue, false},
		{" Magenta ", Magenta, false},
		{"#102030", Color{0x10, 0x20, 0x30}, false},
		{"102030", Color{0x10, 0x20, 0x30}, false},
		{"#ffffff", White, false},
		{"not-a-color", Black, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromBytes(t *testing.T) {
	if _, err := FromBytes([]byte{1, 2}); err == nil {
		t.Error("expected error for short slice")
	}
	c, err := FromBytes([]byte{1, 2, 255})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != (Color{1, 2, 254}) {
		t.Errorf("FromBytes = %v, want 0102FE", c)
	}
}

func TestMixZeroAllocs(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		_ = Blue.Mix(Red, 0.3).Brightness(0.7)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Mix/Brightness, got %.1f", allocs)
	}
}
