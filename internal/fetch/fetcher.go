// Package fetch retrieves source documents using gocolly.
package fetch

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/regwatchio/regwatch/internal/monitor"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements monitor.Fetcher using a Colly collector. Each call is
// a single attempt: retries across runs come from the external scheduler,
// never from here.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	// Monitored endpoints are operator-configured, so status errors must
	// surface rather than be swallowed by colly's default filtering.
	c.WithTransport(newHTTPTransport())
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.IgnoreRobotsTxt = true
	// Clones share the HTTP backend, so the timeout must be set here
	// once rather than per Fetch from concurrent workers.
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	c.SetRequestTimeout(timeout)
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes one HTTP GET for the source URL. All failure modes are
// expressed in the returned FetchResult; the error return of colly is
// folded into either the HTTP-failure or transport-failure kind.
func (f *Fetcher) Fetch(ctx context.Context, src monitor.Source) monitor.FetchResult {
	collector := f.baseCollector.Clone()

	var (
		statusCode int
		body       []byte
		fetchErr   error
	)
	collector.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(src.URL)
	}()

	select {
	case <-ctx.Done():
		return monitor.FetchResult{Kind: monitor.FetchTransportFailure, Err: ctx.Err()}
	case err := <-done:
		return classify(statusCode, body, err, fetchErr)
	}
}

// classify maps the collector outcome onto the tagged fetch result.
func classify(statusCode int, body []byte, visitErr, fetchErr error) monitor.FetchResult {
	if visitErr == nil && fetchErr == nil && isSuccess(statusCode) {
		return monitor.FetchResult{Kind: monitor.FetchOK, Body: body, StatusCode: statusCode}
	}
	// A recorded status outside the success range means a response arrived;
	// the body is untrusted and deliberately dropped.
	if statusCode != 0 && !isSuccess(statusCode) {
		return monitor.FetchResult{Kind: monitor.FetchHTTPFailure, StatusCode: statusCode}
	}
	err := fetchErr
	if err == nil {
		err = visitErr
	}
	return monitor.FetchResult{Kind: monitor.FetchTransportFailure, Err: err}
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
