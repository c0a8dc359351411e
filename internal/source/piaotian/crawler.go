// Package piaotian is the source adapter for the piaotian fiction site and its
// mirrors. Pages are served in GBK and the adapter is strictly sequential: every
// request goes through one rate limiter owned by the Crawler.
package piaotian

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/novelcrawl/piaotian/internal/config"
	"github.com/novelcrawl/piaotian/internal/html"
	sitehttp "github.com/novelcrawl/piaotian/internal/http"
	"github.com/novelcrawl/piaotian/internal/ratelimit"
	"github.com/novelcrawl/piaotian/internal/retry"
	"github.com/novelcrawl/piaotian/internal/source"
	"github.com/novelcrawl/piaotian/pkg/utils"
	"github.com/sirupsen/logrus"
)

// BaseURLs are the known mirrors of the site
var BaseURLs = []string{
	"https://www.piaotia.com/",
	"https://www.ptwxz.com/",
}

var (
	// ErrContentMissing is returned when a chapter page has no content container
	ErrContentMissing = errors.New("chapter content container missing")
	// ErrEmptyResponse is returned when a chapter page has an empty body
	ErrEmptyResponse = errors.New("empty response")
)

var _ source.Crawler = (*Crawler)(nil)

// Options configures a Crawler. Zero values fall back to config.Default().
type Options struct {
	HomeURL string
	Client  *sitehttp.Client
	Limiter *ratelimit.Limiter
	Retry   *retry.Policy
	Cleaner *html.Cleaner
	Logger  logrus.FieldLogger
}

// Crawler implements source.Crawler for piaotian
type Crawler struct {
	home    string
	client  *sitehttp.Client
	limiter *ratelimit.Limiter
	retry   retry.Policy
	cleaner *html.Cleaner
	log     logrus.FieldLogger
}

// New creates a crawler bound to one mirror
func New(opts Options) (*Crawler, error) {
	defaults := config.Default()

	home := utils.EnsureTrailingSlash(strings.TrimSpace(opts.HomeURL))
	if home == "/" {
		home = BaseURLs[0]
	}
	if !utils.IsAbsoluteURL(home) {
		return nil, fmt.Errorf("invalid home URL %q", opts.HomeURL)
	}

	var log logrus.FieldLogger = logrus.StandardLogger()
	if opts.Logger != nil {
		log = opts.Logger
	}
	log = log.WithFields(logrus.Fields{"source": "piaotian", "home": home})

	client := opts.Client
	if client == nil {
		var err error
		client, err = sitehttp.NewClient(sitehttp.Options{
			BaseURL:       home,
			Timeout:       defaults.Transport.Timeout,
			RetryCount:    defaults.Transport.Retries,
			RetryWait:     defaults.Transport.RetryWait,
			RetryMaxWait:  defaults.Transport.RetryMaxWait,
			RetryStatuses: defaults.Transport.RetryStatuses,
			Logger:        log,
		})
		if err != nil {
			return nil, utils.WrapError(err, "create HTTP client")
		}
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.New(defaults.RateLimit.MinDelay, defaults.RateLimit.MaxDelay)
	}

	var policy retry.Policy
	if opts.Retry != nil {
		policy = *opts.Retry
	} else {
		p, err := defaults.RetryPolicy()
		if err != nil {
			return nil, err
		}
		policy = p
	}
	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, err error, wait time.Duration) {
			log.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"wait":    wait.Round(10 * time.Millisecond),
			}).Warnf("chapter attempt failed: %v", err)
		}
	}

	cleaner := opts.Cleaner
	if cleaner == nil {
		var err error
		cleaner, err = html.NewCleaner(defaults.BadLines...)
		if err != nil {
			return nil, err
		}
	}

	minDelay, maxDelay := limiter.Bounds()
	log.WithFields(logrus.Fields{
		"min_delay": minDelay,
		"max_delay": maxDelay,
		"attempts":  policy.MaxAttempts,
	}).Debug("crawler ready")

	return &Crawler{
		home:    home,
		client:  client,
		limiter: limiter,
		retry:   policy,
		cleaner: cleaner,
		log:     log,
	}, nil
}

// NewFromConfig builds a crawler for home using the tunables in cfg
func NewFromConfig(cfg *config.Config, home string, log logrus.FieldLogger) (*Crawler, error) {
	home = utils.EnsureTrailingSlash(home)

	client, err := sitehttp.NewClient(sitehttp.Options{
		BaseURL:       home,
		Timeout:       cfg.Transport.Timeout,
		UserAgent:     cfg.UserAgent,
		UserAgents:    cfg.UserAgents,
		RetryCount:    cfg.Transport.Retries,
		RetryWait:     cfg.Transport.RetryWait,
		RetryMaxWait:  cfg.Transport.RetryMaxWait,
		RetryStatuses: cfg.Transport.RetryStatuses,
		CookiesPath:   cfg.CookieFile,
		Logger:        log,
	})
	if err != nil {
		return nil, utils.WrapError(err, "create HTTP client")
	}

	policy, err := cfg.RetryPolicy()
	if err != nil {
		return nil, err
	}

	cleaner, err := html.NewCleaner(cfg.BadLines...)
	if err != nil {
		return nil, err
	}

	return New(Options{
		HomeURL: home,
		Client:  client,
		Limiter: ratelimit.New(cfg.RateLimit.MinDelay, cfg.RateLimit.MaxDelay),
		Retry:   &policy,
		Cleaner: cleaner,
		Logger:  log,
	})
}

// BaseURLs returns the mirrors this adapter understands
func (c *Crawler) BaseURLs() []string {
	return append([]string(nil), BaseURLs...)
}

// HomeURL returns the mirror the crawler talks to
func (c *Crawler) HomeURL() string {
	return c.home
}

// DownloadCover fetches the cover image of a novel
func (c *Crawler) DownloadCover(coverURL string) ([]byte, error) {
	c.limiter.Wait()
	return c.client.GetBytes(coverURL)
}
