package app

import (
	"reflect"
	"testing"
)

func TestDiffReasons(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		prev, cur   []string
		wantAdded   []string
		wantRemoved []string
	}{
		{
			name: "identical",
			prev: []string{"Not using HTTPS"},
			cur:  []string{"Not using HTTPS"},
		},
		{
			name:      "new provider hit",
			prev:      []string{"Not using HTTPS"},
			cur:       []string{"Flagged by Google Safe Browsing: MALWARE", "Not using HTTPS"},
			wantAdded: []string{"Flagged by Google Safe Browsing: MALWARE"},
		},
		{
			name:        "threat cleared",
			prev:        []string{"Flagged by IP Reputation: 87% confidence", "Uses IP address instead of domain name"},
			cur:         []string{"Uses IP address instead of domain name"},
			wantRemoved: []string{"Flagged by IP Reputation: 87% confidence"},
		},
		{
			name:        "from nothing to clean",
			prev:        nil,
			cur:         []string{"No security threats detected"},
			wantAdded:   []string{"No security threats detected"},
			wantRemoved: nil,
		},
		{
			name:        "replaced",
			prev:        []string{"Domain registered less than 30 days ago"},
			cur:         []string{"Domain registered less than 90 days ago"},
			wantAdded:   []string{"Domain registered less than 90 days ago"},
			wantRemoved: []string{"Domain registered less than 30 days ago"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			added, removed := diffReasons(tt.prev, tt.cur)
			if !reflect.DeepEqual(added, tt.wantAdded) {
				t.Errorf("added = %q, want %q", added, tt.wantAdded)
			}
			if !reflect.DeepEqual(removed, tt.wantRemoved) {
				t.Errorf("removed = %q, want %q", removed, tt.wantRemoved)
			}
		})
	}
}
