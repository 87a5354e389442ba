package kite

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// baseTransportConfig returns the HTTP transport shared by Kite requests.
func baseTransportConfig() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: 2 * time.Minute,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   4,
	}
}

// newRestyClient creates the resty client with auth headers and the retry policy:
// transport errors, 429 and 5xx are retried with exponential wait between RetryWait and
// RetryMaxWait, for at most cfg.Retries attempts in total.
func newRestyClient(cfg Config) *resty.Client {
	c := resty.New().
		SetTransport(baseTransportConfig()).
		SetBaseURL(cfg.baseURL()).
		SetTimeout(cfg.Timeout).
		SetHeader("X-Kite-Version", "3").
		SetHeader("Authorization", cfg.authorization()).
		SetRetryCount(max(cfg.Retries-1, 0)).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := r.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})
	return c
}
