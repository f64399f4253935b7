package webclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/raysh454/trygglink/internal/logging"
)

// ChromeDPClient renders pages in headless Chrome. Only GET is supported.
type ChromeDPClient struct {
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	idleAfter     time.Duration
	logger        logging.Logger
}

// NewChromedpClient starts a browser process shared by all requests.
func NewChromedpClient(cfg Config, logger logging.Logger) (*ChromeDPClient, error) {
	cfg = cfg.withDefaults()

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	if cfg.Headful {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	componentLogger := logger.With(logging.Field{Key: "backend", Value: "chromedp"})
	componentLogger.Debug("created chromedp webclient",
		logging.Field{Key: "idle_after", Value: cfg.IdleAfter.String()})

	return &ChromeDPClient{
		browserCtx:    browserCtx,
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
		idleAfter:     cfg.IdleAfter,
		logger:        componentLogger,
	}, nil
}

// waitNetworkIdle closes the returned channel once no request has been in
// flight for idleAfter.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) (<-chan struct{}, func()) {
	idle := make(chan struct{})
	var activeReqs int32
	var timer *time.Timer
	var timerMu sync.Mutex
	var once sync.Once

	startTimer := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() { close(idle) })
			}
		})
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&activeReqs, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&activeReqs, -1) <= 0 {
				startTimer()
			}
		}
	})

	return idle, startTimer
}

func (cdc *ChromeDPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if m := strings.ToUpper(req.Method); m != "" && m != http.MethodGet {
		return nil, fmt.Errorf("chromedp: unsupported method %s", m)
	}

	tabCtx, cancel := chromedp.NewContext(cdc.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		docMu      sync.Mutex
		statusCode int
		headers    = http.Header{}
	)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		rr, ok := ev.(*network.EventResponseReceived)
		if !ok || rr.Type != network.ResourceTypeDocument {
			return
		}
		docMu.Lock()
		defer docMu.Unlock()
		if statusCode != 0 {
			return
		}
		statusCode = int(rr.Response.Status)
		for k, v := range rr.Response.Headers {
			headers.Set(k, fmt.Sprint(v))
		}
	})

	idle, kick := waitNetworkIdle(tabCtx, cdc.idleAfter)
	if err := chromedp.Run(tabCtx, network.Enable(), chromedp.Navigate(req.URL)); err != nil {
		return nil, fmt.Errorf("chromedp navigate: %w", err)
	}
	kick()

	select {
	case <-idle:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, fmt.Errorf("chromedp read html: %w", err)
	}

	docMu.Lock()
	defer docMu.Unlock()
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	return &Response{
		Request:    req,
		Headers:    headers,
		Body:       []byte(html),
		StatusCode: statusCode,
		FetchedAt:  time.Now(),
	}, nil
}

func (cdc *ChromeDPClient) Close() error {
	cdc.cancelBrowser()
	cdc.cancelAlloc()
	return nil
}
