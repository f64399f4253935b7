package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/raysh454/trygglink/internal/logging"
	"github.com/raysh454/trygglink/internal/model"
	"github.com/raysh454/trygglink/internal/provider"
)

const (
	metadataHash     = "hash"
	metadataOrigName = "originalName"
	metadataVendors  = "vendorsTotal"
)

// HashBytes returns the lowercase hex SHA-256 fingerprint of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CheckFileSafety scores a file by its SHA-256 fingerprint. The file itself
// never leaves the process; only the hash is looked up.
func (e *Engine) CheckFileSafety(ctx context.Context, data []byte, fileName string) (res *model.ScanResult) {
	hash := HashBytes(data)
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("file pipeline panic",
				logging.Field{Key: "hash", Value: hash},
				logging.Field{Key: "panic", Value: fmt.Sprint(r)})
			res = e.fileResult(hash, fileName, int64(len(data)), &scan{})
			e.applyFileUnavailable(res, detailUnavailable)
		}
		e.metrics.recordScan(ctx, string(res.ScanType), string(res.Verdict))
	}()
	return e.checkFile(ctx, hash, fileName, int64(len(data)))
}

func (e *Engine) checkFile(ctx context.Context, hash, fileName string, size int64) *model.ScanResult {
	in := provider.Input{FileHash: hash, FileName: fileName, FileSize: size}
	outs := e.fanOut(ctx, e.providers[provider.KindFileReputation], in)

	var s scan
	var best *provider.FileFacts
	var bestDetail, bestName string
	for _, o := range outs {
		name := o.provider.Name()
		if !o.available() {
			s.check(name, model.StatusError, unavailableDetail(o.err))
			continue
		}
		facts := o.signal.File
		if facts == nil {
			facts = &provider.FileFacts{}
		}
		status := model.StatusClean
		switch {
		case facts.Malicious > 0:
			status = model.StatusMalicious
		case facts.Suspicious > 0:
			status = model.StatusSuspicious
		}
		s.check(name, status, o.signal.Detail)
		if best == nil || rank(facts) > rank(best) {
			best, bestDetail, bestName = facts, o.signal.Detail, name
		}
	}

	res := e.fileResult(hash, fileName, size, &s)
	if best == nil {
		detail := ""
		if len(outs) == 0 {
			detail = detailUnavailable
		}
		e.applyFileUnavailable(res, detail)
		return res
	}

	res.Metadata[metadataVendors] = best.Total
	switch {
	case best.Malicious > 0:
		res.RiskScore = e.fileScore(best.Malicious)
		res.Verdict = model.VerdictSuspicious
		if best.Malicious > e.cfg.FileMaliciousVendorThreshold {
			res.Verdict = model.VerdictMalicious
		}
		res.Reasons = []string{fmt.Sprintf("Flagged by %s: %s", bestName, bestDetail)}
	case best.Suspicious > 0:
		res.RiskScore = e.fileScore(best.Suspicious)
		res.Verdict = model.VerdictSuspicious
		res.Reasons = []string{fmt.Sprintf("Flagged by %s: %s", bestName, bestDetail)}
	default:
		res.RiskScore = e.cfg.FileCleanScore
		res.Verdict = e.verdictFor(res.RiskScore)
		res.Reasons = s.finalReasons()
	}
	return res
}

// fileScore is the graduated penalty for n flagging vendors.
func (e *Engine) fileScore(n int) int {
	return clamp(e.cfg.FileBaseScore + e.cfg.FilePerVendorPoints*n)
}

// rank orders file facts by severity so the worst provider answer wins.
func rank(f *provider.FileFacts) int {
	return f.Malicious*1000 + f.Suspicious
}

func (e *Engine) fileResult(hash, fileName string, size int64, s *scan) *model.ScanResult {
	return &model.ScanResult{
		ID:             e.newID(),
		ScanType:       model.ScanTypeFile,
		FileName:       fileName,
		FileHash:       hash,
		FileSize:       size,
		SecurityChecks: s.checks,
		Metadata: map[string]any{
			metadataHash:     hash,
			metadataOrigName: fileName,
		},
		CreatedAt: e.now().UTC(),
	}
}

// applyFileUnavailable sets the fixed low-risk fallback. A non-empty
// errDetail records why the pipeline itself failed.
func (e *Engine) applyFileUnavailable(res *model.ScanResult, errDetail string) {
	res.RiskScore = e.cfg.FileUnavailableScore
	res.Verdict = model.VerdictSafe
	res.Reasons = []string{ReasonFileUnavailable}
	if errDetail != "" {
		res.SecurityChecks = append(res.SecurityChecks, model.SecurityCheck{
			Name: "File Reputation", Status: model.StatusError, Details: errDetail,
		})
	}
}
