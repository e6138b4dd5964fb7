package service

import (
	"strconv"
	"testing"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 1, false},
		{"3", 3, false},
		{strconv.Itoa(MaxPage), MaxPage, false},
		{strconv.Itoa(MaxPage + 1), 0, true},
		{"9223372036854775807", 0, true},
		{"0", 0, true},
		{"-2", 0, true},
		{"two", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, apierr := parsePage(tt.raw)
			if (apierr != nil) != tt.wantErr {
				t.Fatalf("parsePage(%q) error = %v", tt.raw, apierr)
			}
			if got != tt.want {
				t.Errorf("parsePage(%q) = %d, want %d", tt.raw, got, tt.want)
			}
			if apierr == nil && (got-1)*PageSize < 0 {
				t.Errorf("offset for page %d overflowed", got)
			}
		})
	}
}
