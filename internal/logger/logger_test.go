package logger

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "defaults", opts: Options{Level: "info"}},
		{name: "console format", opts: Options{Level: "debug", Format: "console"}},
		{name: "json format", opts: Options{Level: "warn", Format: "json"}},
		{name: "unknown level", opts: Options{Level: "verbose"}, wantErr: true},
		{name: "unknown format", opts: Options{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("New accepted invalid options")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if log == nil {
				t.Fatal("New returned a nil logger")
			}
		})
	}
}
