package alsa

import (
	"errors"
	"testing"
)

func TestMatch(t *testing.T) {
	names := []string{
		"Midi Through 14:0",
		"UM-ONE 24:0",
		"nanoKONTROL2 28:0",
	}

	tests := []struct {
		name    string
		want    string
		wantIdx int
		wantErr error
	}{
		{name: "empty selects first port", want: "", wantIdx: 0},
		{name: "exact match", want: "UM-ONE 24:0", wantIdx: 1},
		{name: "substring match", want: "nanoKONTROL2", wantIdx: 2},
		{name: "case-insensitive substring", want: "um-one", wantIdx: 1},
		{name: "unknown port", want: "hw:9,9", wantErr: ErrPortNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Match(names, tt.want)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Match() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if idx != tt.wantIdx {
				t.Errorf("Match() = %d, want %d", idx, tt.wantIdx)
			}
		})
	}
}

func TestMatchWithoutPorts(t *testing.T) {
	if _, err := Match(nil, "anything"); !errors.Is(err, ErrNoOutputPorts) {
		t.Errorf("Match(nil) error = %v, want %v", err, ErrNoOutputPorts)
	}
}

func TestMatchPrefersExactOverSubstring(t *testing.T) {
	names := []string{"Synth A", "Synth"}

	idx, err := Match(names, "Synth")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if idx != 1 {
		t.Errorf("Match() = %d, want the exact match at 1", idx)
	}
}
