package http

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/novelcrawl/piaotian/pkg/utils"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultRetryCount   = 2
	defaultRetryWait    = time.Second
	defaultRetryMaxWait = 5 * time.Second
	defaultAccept       = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// UserAgents is the pool a client samples from when no user agent is configured.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

// DefaultRetryStatuses are the server errors retried at the transport level.
var DefaultRetryStatuses = []int{
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
	520, 521, 522, 524,
}

// Options configures a Client
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	UserAgent     string
	UserAgents    []string
	RetryCount    int
	RetryWait     time.Duration
	RetryMaxWait  time.Duration
	RetryStatuses []int
	CookiesPath   string
	Logger        logrus.FieldLogger
}

// Client performs requests against a single source site
type Client struct {
	client    *resty.Client
	userAgent string
	log       logrus.FieldLogger
}

// Page is a fetched and decoded HTML document
type Page struct {
	URL  string
	Body string
}

// StatusError is returned when the site answers with a non-2xx status
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// NewClient creates a new HTTP client for a source site
func NewClient(opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	timeout := lo.Ternary(opts.Timeout > 0, opts.Timeout, defaultTimeout)
	retryWait := lo.Ternary(opts.RetryWait > 0, opts.RetryWait, defaultRetryWait)
	retryMaxWait := lo.Ternary(opts.RetryMaxWait > 0, opts.RetryMaxWait, defaultRetryMaxWait)
	statuses := lo.Ternary(len(opts.RetryStatuses) > 0, opts.RetryStatuses, DefaultRetryStatuses)
	retryCount := opts.RetryCount
	if retryCount < 0 {
		retryCount = defaultRetryCount
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		pool := lo.Ternary(len(opts.UserAgents) > 0, opts.UserAgents, UserAgents)
		userAgent = lo.Sample(pool)
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		SetLogger(log).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && lo.Contains(statuses, r.StatusCode())
		}).
		AddRetryHook(func(r *resty.Response, err error) {
			fields := logrus.Fields{}
			if r != nil && r.Request != nil {
				fields["url"] = r.Request.URL
			}
			if err != nil {
				fields["error"] = err
			} else if r != nil {
				fields["status"] = r.StatusCode()
			}
			log.WithFields(fields).Warn("retrying request")
		})

	client.SetHeaders(map[string]string{
		"Accept":        defaultAccept,
		"Cache-Control": "no-cache",
		"User-Agent":    userAgent,
	})

	if opts.CookiesPath != "" {
		cookies, err := utils.LoadCookies(opts.CookiesPath)
		if err != nil {
			return nil, utils.WrapError(err, "load cookies")
		}
		client.SetCookies(cookieSet(opts.BaseURL, cookies))
	}

	return &Client{
		client:    client,
		userAgent: userAgent,
		log:       log,
	}, nil
}

// UserAgent returns the user agent sent with every request
func (c *Client) UserAgent() string {
	return c.userAgent
}

// GetPage fetches a GBK encoded page
func (c *Client) GetPage(pageURL string, headers map[string]string) (*Page, error) {
	resp, err := c.client.R().
		SetHeaders(headers).
		Get(pageURL)
	if err != nil {
		return nil, utils.WrapError(err, "fetch "+pageURL)
	}
	return c.decodePage(pageURL, resp)
}

// PostForm submits an already encoded form body and returns the resulting page.
// Redirects are followed; Page.URL holds the final location.
func (c *Client) PostForm(pageURL, body string, headers map[string]string) (*Page, error) {
	resp, err := c.client.R().
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetHeaders(headers).
		SetBody(body).
		Post(pageURL)
	if err != nil {
		return nil, utils.WrapError(err, "post "+pageURL)
	}
	return c.decodePage(pageURL, resp)
}

// GetBytes downloads a binary asset
func (c *Client) GetBytes(assetURL string) ([]byte, error) {
	resp, err := c.client.R().Get(assetURL)
	if err != nil {
		return nil, utils.WrapError(err, "fetch "+assetURL)
	}
	if !resp.IsSuccess() {
		return nil, &StatusError{Code: resp.StatusCode(), URL: assetURL}
	}
	return resp.Body(), nil
}

func (c *Client) decodePage(requested string, resp *resty.Response) (*Page, error) {
	final := finalURL(requested, resp)
	if !resp.IsSuccess() {
		return nil, &StatusError{Code: resp.StatusCode(), URL: final}
	}

	body, err := DecodeGBK(resp.Body())
	if err != nil {
		return nil, utils.WrapError(err, "decode "+final)
	}

	c.log.WithFields(logrus.Fields{
		"url":    final,
		"status": resp.StatusCode(),
		"bytes":  len(resp.Body()),
	}).Debug("fetched page")

	return &Page{URL: final, Body: body}, nil
}

// finalURL returns the URL of the last request in a redirect chain
func finalURL(requested string, resp *resty.Response) string {
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		return resp.RawResponse.Request.URL.String()
	}
	return requested
}

func cookieSet(baseURL string, cookies map[string]string) []*http.Cookie {
	domain := ""
	if base, err := url.Parse(baseURL); err == nil {
		domain = base.Hostname()
	}

	set := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		set = append(set, &http.Cookie{
			Name:   name,
			Value:  value,
			Path:   "/",
			Domain: domain,
		})
	}
	return set
}
