// Package provider defines the signal provider contract and the vendor
// adapters that implement it.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind tells the engine which pipeline slot a provider fills.
type Kind string

const (
	KindBlocklist      Kind = "blocklist"
	KindReputation     Kind = "reputation"
	KindWhois          Kind = "whois"
	KindDeepScan       Kind = "deepscan"
	KindFileReputation Kind = "file-reputation"
	KindContent        Kind = "content"
)

// Authoritative reports whether a working provider of this kind disables
// adaptive heuristic weighting.
func (k Kind) Authoritative() bool {
	return k == KindBlocklist || k == KindReputation
}

var (
	// ErrNoCredential means the provider has no API key configured.
	ErrNoCredential = errors.New("credential not configured")

	// ErrUnexpectedStatus wraps non-2xx vendor responses.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrUnsupportedInput means the input cannot be checked by this provider.
	ErrUnsupportedInput = errors.New("unsupported input")
)

// Input is what a provider inspects. URL scans set URL and Host; file scans
// set the File fields.
type Input struct {
	URL  string
	Host string

	FileHash string
	FileName string
	FileSize int64
}

// Signal is a provider's opinion. Available=false always carries a zero
// Contribution and no Positive flag.
type Signal struct {
	Available    bool
	Positive     bool
	Contribution int
	Detail       string

	ThreatType string       // blocklist match type
	Confidence int          // reputation confidence percentage
	IP         string       // address the reputation check ran against
	Country    string       // country reported by the provider, if any
	Domain     *DomainFacts // whois
	File       *FileFacts   // file reputation
	ScanID     string       // deep-scan submission id
}

// DomainFacts is the registration data a WHOIS provider returns.
type DomainFacts struct {
	Registrar string
	Country   string
	CreatedAt time.Time
	AgeDays   *int
}

// FileFacts is the vendor tally a file-reputation provider returns.
type FileFacts struct {
	Known      bool
	Malicious  int
	Suspicious int
	Total      int
}

// Provider is the uniform capability every signal source implements.
type Provider interface {
	Name() string
	Kind() Kind
	Check(ctx context.Context, in Input) (Signal, error)
}

// SafeCheck runs p.Check bounded by timeout and converts panics into errors.
// Callers treat any returned error as "unavailable". The call returns when
// the deadline passes even if the provider ignores its context.
func SafeCheck(ctx context.Context, p Provider, in Input, timeout time.Duration) (Signal, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		sig Signal
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%s: panic: %v", p.Name(), r)}
			}
		}()
		sig, err := p.Check(ctx, in)
		done <- outcome{sig: sig, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return Signal{}, out.err
		}
		return normalize(out.sig), nil
	case <-ctx.Done():
		return Signal{}, fmt.Errorf("%s: %w", p.Name(), ctx.Err())
	}
}

func normalize(sig Signal) Signal {
	if !sig.Available {
		sig.Positive = false
		sig.Contribution = 0
	}
	if sig.Contribution < 0 {
		sig.Contribution = 0
	}
	return sig
}
