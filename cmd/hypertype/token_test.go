package main

import "testing"

func TestClassifyText(t *testing.T) {
	tests := []struct {
		text string
		want Token
	}{
		{" ", TokenSpace},
		{"\n", TokenEnter},
		{"\t", TokenTab},
		{"A", "SHIFT+A"},
		{"Z", "SHIFT+Z"},
		{"a", "a"},
		{"7", "7"},
		{";", ";"},
		{"AB", "AB"},
		{"é", "é"},
	}
	for _, tt := range tests {
		if got := ClassifyText(tt.text); got != tt.want {
			t.Errorf("ClassifyText(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestToken_Properties(t *testing.T) {
	tests := []struct {
		tok     Token
		special bool
		corner  bool
		dir     Direction
		sound   SoundKind
		shake   float64
	}{
		{"a", false, true, DirectionLeft, SoundNormal, 0.5},
		{"SHIFT+A", true, true, DirectionLeft, SoundNormal, 0.5},
		{TokenSpace, true, true, DirectionLeft, SoundNormal, 0.5},
		{TokenEnter, true, false, DirectionMiddle, SoundEnter, 0.3},
		{TokenTab, true, false, DirectionMiddle, SoundNormal, 0.3},
		{TokenBackspace, true, false, DirectionRight, SoundNormal, 0.5},
		{TokenDelete, true, true, DirectionLeft, SoundNormal, 0.5},
	}
	for _, tt := range tests {
		if got := tt.tok.IsSpecial(); got != tt.special {
			t.Errorf("%s IsSpecial = %v, want %v", tt.tok, got, tt.special)
		}
		if got := tt.tok.HasCornerBox(); got != tt.corner {
			t.Errorf("%s HasCornerBox = %v, want %v", tt.tok, got, tt.corner)
		}
		if got := DirectionFor(tt.tok); got != tt.dir {
			t.Errorf("%s direction = %s, want %s", tt.tok, got, tt.dir)
		}
		if got := soundFor(tt.tok); got != tt.sound {
			t.Errorf("%s sound = %s, want %s", tt.tok, got, tt.sound)
		}
		if got := shakeFor(tt.tok); got != tt.shake {
			t.Errorf("%s shake = %v, want %v", tt.tok, got, tt.shake)
		}
	}
}
