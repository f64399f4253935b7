package webclient

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/raysh454/trygglink/internal/logging"
)

// BackendConstructor constructs a WebClient given the config and logger.
type BackendConstructor func(cfg Config, logger logging.Logger) (WebClient, error)

var (
	mu       sync.RWMutex
	registry = map[string]BackendConstructor{}
)

func init() {
	RegisterBackend(string(ClientNetHTTP), func(cfg Config, logger logging.Logger) (WebClient, error) {
		return NewNetHTTPClient(cfg, logger, nil)
	})
	RegisterBackend(string(ClientChromedp), func(cfg Config, logger logging.Logger) (WebClient, error) {
		return NewChromedpClient(cfg, logger)
	})
}

// RegisterBackend registers a named backend constructor. Name is lower-cased.
// Registering the same name twice overwrites the previous constructor.
func RegisterBackend(name string, ctor BackendConstructor) {
	if name == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(name)] = ctor
}

// NewWebClient constructs the configured backend, defaulting to nethttp.
func NewWebClient(cfg Config, logger logging.Logger) (WebClient, error) {
	backend := strings.ToLower(strings.TrimSpace(string(cfg.Client)))
	if backend == "" {
		backend = string(ClientNetHTTP)
	}

	mu.RLock()
	ctor, ok := registry[backend]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("webclient backend %q not registered: available backends=%v", backend, ListBackends())
	}

	wc, err := ctor(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("construct webclient backend %q: %w", backend, err)
	}
	if wc == nil {
		return nil, errors.New("webclient constructor returned nil")
	}
	return wc, nil
}

// ListBackends returns the registered backend names, sorted.
func ListBackends() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
