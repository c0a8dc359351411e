// Package mirror checks which base URLs of a site are reachable and how fast.
package mirror

import (
	"errors"
	"sort"
	"time"

	sitehttp "github.com/novelcrawl/piaotian/internal/http"
	"github.com/novelcrawl/piaotian/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

const maxProbes = 4

// ErrNoMirror is returned when no mirror answered the probe
var ErrNoMirror = errors.New("no reachable mirror")

// Result is the outcome of probing one mirror
type Result struct {
	URL     string
	Latency time.Duration
	Err     error
}

// Healthy reports whether the mirror answered with a 2xx status
func (r Result) Healthy() bool {
	return r.Err == nil
}

// Probe fetches the home page of every mirror concurrently. Results are sorted
// healthy first, then by latency; unhealthy mirrors keep their input order.
func Probe(mirrors []string, timeout time.Duration, log logrus.FieldLogger) []Result {
	if log == nil {
		log = logrus.StandardLogger()
	}

	p := pool.NewWithResults[Result]().WithMaxGoroutines(maxProbes)
	for _, m := range mirrors {
		home := utils.EnsureTrailingSlash(m)
		p.Go(func() Result {
			r := probeOne(home, timeout, log)
			log.WithFields(logrus.Fields{
				"mirror":  r.URL,
				"latency": r.Latency.Round(time.Millisecond),
				"healthy": r.Healthy(),
			}).Debug("mirror probed")
			return r
		})
	}
	results := p.Wait()

	order := make(map[string]int, len(mirrors))
	for i, m := range mirrors {
		order[utils.EnsureTrailingSlash(m)] = i
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Healthy() != b.Healthy() {
			return a.Healthy()
		}
		if a.Healthy() && a.Latency != b.Latency {
			return a.Latency < b.Latency
		}
		return order[a.URL] < order[b.URL]
	})
	return results
}

// Fastest returns the healthy mirror with the lowest latency
func Fastest(results []Result) (string, error) {
	for _, r := range results {
		if r.Healthy() {
			return r.URL, nil
		}
	}
	return "", ErrNoMirror
}

func probeOne(home string, timeout time.Duration, log logrus.FieldLogger) Result {
	client, err := sitehttp.NewClient(sitehttp.Options{
		BaseURL:    home,
		Timeout:    timeout,
		RetryCount: 0,
		Logger:     log,
	})
	if err != nil {
		return Result{URL: home, Err: err}
	}

	start := time.Now()
	_, err = client.GetBytes(home)
	return Result{URL: home, Latency: time.Since(start), Err: err}
}
