package model_test

import (
	"testing"

	"github.com/raysh454/trygglink/internal/model"
)

func TestScanResult_InputRef(t *testing.T) {
	t.Parallel()
	u := &model.ScanResult{ScanType: model.ScanTypeURL, URL: "https://example.com/"}
	if got := u.InputRef(); got != "https://example.com/" {
		t.Errorf("url InputRef = %q", got)
	}
	f := &model.ScanResult{ScanType: model.ScanTypeFile, URL: "ignored", FileHash: "abc123"}
	if got := f.InputRef(); got != "abc123" {
		t.Errorf("file InputRef = %q", got)
	}
}

func TestScanResult_HasErrorCheck(t *testing.T) {
	t.Parallel()
	r := &model.ScanResult{SecurityChecks: []model.SecurityCheck{{Name: "A", Status: model.StatusClean}}}
	if r.HasErrorCheck() {
		t.Error("clean checks reported an error")
	}
	r.SecurityChecks = append(r.SecurityChecks, model.SecurityCheck{Name: "B", Status: model.StatusError})
	if !r.HasErrorCheck() {
		t.Error("error check not detected")
	}
}

func TestScanResult_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		r    model.ScanResult
		ok   bool
	}{
		{"url", model.ScanResult{ScanType: model.ScanTypeURL, URL: "https://a.example", Verdict: model.VerdictSafe}, true},
		{"file", model.ScanResult{ScanType: model.ScanTypeFile, FileHash: "ab", RiskScore: 80, Verdict: model.VerdictMalicious}, true},
		{"score range", model.ScanResult{ScanType: model.ScanTypeURL, URL: "https://a.example", RiskScore: 101, Verdict: model.VerdictMalicious}, false},
		{"verdict", model.ScanResult{ScanType: model.ScanTypeURL, URL: "https://a.example", Verdict: "unknown"}, false},
		{"missing url", model.ScanResult{ScanType: model.ScanTypeURL, Verdict: model.VerdictSafe}, false},
		{"missing hash", model.ScanResult{ScanType: model.ScanTypeFile, Verdict: model.VerdictSafe}, false},
	}
	for _, tt := range tests {
		err := tt.r.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}
