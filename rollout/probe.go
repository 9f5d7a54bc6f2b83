package rollout

import (
	"context"
	"net/http"
	"regexp"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/stackgraph/stackgraph/synth"
)

// ProberFunc adapts a function to a Prober.
type ProberFunc func(ctx context.Context, res synth.Resource) error

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, res synth.Resource) error {
	return f(ctx, res)
}

// StaticProber returns a fixed result per resource name. Resources not in the
// map are ready.
type StaticProber map[string]error

// Probe returns the result for res.
func (p StaticProber) Probe(ctx context.Context, res synth.Resource) error {
	return p[res.Name]
}

var urlPattern = regexp.MustCompile(`https?://[^\s'"]+`)

// HTTPProber probes gates whose predicate contains a URL, such as
//
//	health check passes: curl -f http://localhost:8080/
//
// The gate is ready when a GET request to the URL returns a status below 400.
// Predicates without a URL fail permanently.
type HTTPProber struct {
	// Client is the HTTP client to use. If not set, http.DefaultClient is
	// used.
	Client *http.Client

	// Rewrite, if set, maps the URL from the predicate to the URL to
	// request. It can be used to reach a service through its load balancer.
	Rewrite func(res synth.Resource, url string) string
}

// Probe requests the URL in the gate predicate.
func (p *HTTPProber) Probe(ctx context.Context, res synth.Resource) error {
	if res.Gate == nil {
		return nil
	}
	url := urlPattern.FindString(res.Gate.Predicate)
	if url == "" {
		return backoff.Permanent(errors.Errorf("predicate %q does not contain a URL", res.Gate.Predicate))
	}
	if p.Rewrite != nil {
		url = p.Rewrite(res, url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(errors.Wrap(err, "create request"))
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return errors.Errorf("%s returned %s", url, resp.Status)
	}
	return nil
}
