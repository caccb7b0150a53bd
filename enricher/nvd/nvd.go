// Package nvd implements the last-resort vulnerability lookup against the
// NVD 2.0 REST API.
//
// The API is aggressively rate limited for anonymous callers, so the client
// carries its own limiter and treats every failure as survivable: callers
// are expected to degrade to "no data" rather than propagate errors to a
// whole batch.
package nvd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quay/zlog"
	"golang.org/x/time/rate"

	"github.com/cvelab/vulnenrich"
	"github.com/cvelab/vulnenrich/internal/httputil"
)

// DefaultRoot is the default API endpoint.
const DefaultRoot = `https://services.nvd.nist.gov/rest/json/cves/2.0`

const (
	// MaxResults caps how many records a single lookup returns.
	maxResults = 10
	// Per-request deadline.
	requestTimeout = 5 * time.Second
	// Attempts and backoffBase govern the retry schedule for transient
	// failures.
	attempts    = 3
	backoffBase = 500 * time.Millisecond
)

var defaultRoot *url.URL

func init() {
	var err error
	defaultRoot, err = url.Parse(DefaultRoot)
	if err != nil {
		panic(err)
	}
}

// Client queries the NVD CVE API by keyword.
type Client struct {
	c       *http.Client
	root    *url.URL
	limiter *rate.Limiter
	apiKey  string
}

// NewClient returns a Client talking to root, or the public NVD endpoint if
// root is empty.
//
// The anonymous rate limit is 5 requests per rolling 30 seconds; an API key
// raises it to 50.
func NewClient(c *http.Client, root, apiKey string) (*Client, error) {
	if c == nil {
		c = http.DefaultClient
	}
	u := defaultRoot
	if root != "" {
		var err error
		u, err = url.Parse(root)
		if err != nil {
			return nil, &vulnenrich.Error{
				Op:      `nvd/NewClient`,
				Kind:    vulnenrich.ErrInvalid,
				Message: "bad root URL",
				Inner:   err,
			}
		}
	}
	every := 30 * time.Second / 5
	if apiKey != "" {
		every = 30 * time.Second / 50
	}
	return &Client{
		c:       c,
		root:    u,
		limiter: rate.NewLimiter(rate.Every(every), 1),
		apiKey:  apiKey,
	}, nil
}

// Search looks up vulnerabilities for the software item by keyword.
func (c *Client) Search(ctx context.Context, item vulnenrich.SoftwareItem) ([]vulnenrich.Vulnerability, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "enricher/nvd/Client.Search")
	keyword := strings.TrimSpace(strings.Join([]string{item.Vendor, item.Name}, " "))
	if keyword == "" {
		return nil, nil
	}
	u := *c.root
	v := url.Values{}
	v.Set("keywordSearch", keyword)
	v.Set("resultsPerPage", strconv.Itoa(maxResults))
	u.RawQuery = v.Encode()

	var res response
	err := httputil.Retry(ctx, attempts, backoffBase, func(ctx context.Context) error {
		return c.do(ctx, u.String(), &res)
	})
	if err != nil {
		return nil, err
	}
	out := make([]vulnenrich.Vulnerability, 0, len(res.Vulnerabilities))
	for _, rec := range res.Vulnerabilities {
		out = append(out, rec.CVE.vulnerability())
	}
	zlog.Debug(ctx).
		Str("keyword", keyword).
		Int("vulnerabilities", len(out)).
		Msg("keyword search")
	return vulnenrich.Deduplicate(out), nil
}

func (c *Client) do(ctx context.Context, url string, into *response) error {
	const op = `nvd/Client.do`
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(tctx, http.MethodGet, url, nil)
	if err != nil {
		return &vulnenrich.Error{Op: op, Kind: vulnenrich.ErrInvalid, Inner: err}
	}
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}
	resp, err := c.c.Do(req)
	if err != nil {
		kind := vulnenrich.ErrUnreachable
		var uerr interface{ Timeout() bool }
		if errors.As(err, &uerr) && uerr.Timeout() {
			kind = vulnenrich.ErrTimeout
		}
		return &vulnenrich.Error{Op: op, Kind: kind, Message: "request failed", Inner: err}
	}
	defer resp.Body.Close()
	if err := httputil.CheckResponse(resp, http.StatusOK); err != nil {
		if errors.Is(err, vulnenrich.ErrRateLimited) {
			// Honor the server's backoff before the retry schedule kicks in.
			t := time.NewTimer(httputil.RetryAfter(resp, backoffBase))
			select {
			case <-ctx.Done():
				t.Stop()
			case <-t.C:
			}
		}
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return &vulnenrich.Error{Op: op, Kind: vulnenrich.ErrBadResponse, Message: "undecodable response", Inner: err}
	}
	return nil
}

// The subset of the NVD 2.0 response shape this package reads.
type response struct {
	Vulnerabilities []struct {
		CVE cveItem `json:"cve"`
	} `json:"vulnerabilities"`
}

type cveItem struct {
	ID           string `json:"id"`
	Published    string `json:"published"`
	LastModified string `json:"lastModified"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	References []struct {
		URL string `json:"url"`
	} `json:"references"`
	Metrics struct {
		V31 []metric `json:"cvssMetricV31"`
		V30 []metric `json:"cvssMetricV30"`
		V2  []metric `json:"cvssMetricV2"`
	} `json:"metrics"`
}

type metric struct {
	CVSSData struct {
		BaseScore float64 `json:"baseScore"`
	} `json:"cvssData"`
}

// NVD reports timestamps without a zone; they're documented to be UTC.
const timeLayout = `2006-01-02T15:04:05.000`

func (c *cveItem) vulnerability() vulnenrich.Vulnerability {
	v := vulnenrich.Vulnerability{ID: c.ID}
	for _, d := range c.Descriptions {
		if d.Lang == "en" || v.Description == "" {
			v.Description = d.Value
		}
		if d.Lang == "en" {
			break
		}
	}
	for _, ms := range [][]metric{c.Metrics.V31, c.Metrics.V30, c.Metrics.V2} {
		if len(ms) != 0 {
			v.CVSSScore = ms[0].CVSSData.BaseScore
			break
		}
	}
	v.Severity = vulnenrich.SeverityFromScore(v.CVSSScore)
	if t, err := time.Parse(timeLayout, c.Published); err == nil {
		v.Published = t.UTC()
	}
	if t, err := time.Parse(timeLayout, c.LastModified); err == nil {
		v.Modified = t.UTC()
	}
	for _, r := range c.References {
		if r.URL != "" {
			v.References = append(v.References, r.URL)
		}
	}
	return v
}
