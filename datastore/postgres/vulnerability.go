package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v8"
	_ "github.com/doug-martin/goqu/v8/dialect/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/quay/zlog"

	"github.com/cvelab/vulnenrich"
	"github.com/cvelab/vulnenrich/datastore"
	"github.com/cvelab/vulnenrich/pkg/cpe"
	"github.com/cvelab/vulnenrich/pkg/version"
)

var (
	vulnQueryCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vulnenrich",
			Subsystem: "vulnstore",
			Name:      "queries_total",
			Help:      "Total number of database queries issued by the vulnerability store.",
		},
		[]string{"query"},
	)
	vulnQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vulnenrich",
			Subsystem: "vulnstore",
			Name:      "query_duration_seconds",
			Help:      "The duration of queries issued by the vulnerability store.",
		},
		[]string{"query"},
	)
)

// VulnStore implements [datastore.Vulnerability] over a pgx pool.
type VulnStore struct {
	pool *pgxpool.Pool
}

var _ datastore.Vulnerability = (*VulnStore)(nil)

// NewVulnStore returns a VulnStore using the provided pool.
func NewVulnStore(pool *pgxpool.Pool) *VulnStore {
	return &VulnStore{pool: pool}
}

// ByIdentifier implements datastore.Vulnerability.
//
// The precomputed vuln_identifier links are tried first; if the identifier
// has no links at all, the raw advisory configurations are scanned. Version
// expressions are evaluated client-side, because they're ranges in an
// assortment of schemes.
func (s *VulnStore) ByIdentifier(ctx context.Context, id *cpe.CPE) ([]vulnenrich.Vulnerability, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "datastore/postgres/VulnStore.ByIdentifier")
	if id == nil {
		return nil, nil
	}
	out, err := s.byLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		out, err = s.byConfiguration(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	zlog.Debug(ctx).
		Str("identifier", id.String()).
		Int("vulnerabilities", len(out)).
		Msg("identifier lookup")
	return vulnenrich.Deduplicate(out), nil
}

func (s *VulnStore) byLink(ctx context.Context, id *cpe.CPE) ([]vulnenrich.Vulnerability, error) {
	const name = `bylink`
	psql := goqu.Dialect("postgres")
	query, args, err := psql.From(goqu.T("vulnerability").As("v")).
		Join(
			goqu.T("vuln_identifier").As("vi"),
			goqu.On(goqu.I("vi.vuln_id").Eq(goqu.I("v.id"))),
		).
		Select("v.cve", "v.description", "v.cvss_score", "v.published", "v.modified", "v.refs", "vi.version_expr").
		Where(goqu.Ex{
			"vi.vendor":  id.Vendor,
			"vi.product": id.Product,
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	return s.query(ctx, name, id.Version, query, args...)
}

func (s *VulnStore) byConfiguration(ctx context.Context, id *cpe.CPE) ([]vulnenrich.Vulnerability, error) {
	const name = `byconfiguration`
	const query = `
SELECT v.cve, v.description, v.cvss_score, v.published, v.modified, v.refs, c->>'version'
FROM vulnerability AS v
CROSS JOIN LATERAL jsonb_array_elements(v.configurations) AS c
WHERE v.configurations @> $1::jsonb
  AND c->>'vendor' = $2
  AND c->>'product' = $3;`
	probe, err := json.Marshal([]map[string]string{{
		"vendor":  id.Vendor,
		"product": id.Product,
	}})
	if err != nil {
		return nil, fmt.Errorf("building probe: %w", err)
	}
	return s.query(ctx, name, id.Version, query, string(probe), id.Vendor, id.Product)
}

// ByText implements datastore.Vulnerability.
func (s *VulnStore) ByText(ctx context.Context, name, ver string) ([]vulnenrich.Vulnerability, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "datastore/postgres/VulnStore.ByText")
	const label = `bytext`
	const query = `
SELECT cve, description, cvss_score, published, modified, refs
FROM vulnerability
WHERE tsv @@ plainto_tsquery('english', $1)
ORDER BY ts_rank(tsv, plainto_tsquery('english', $1)) DESC
LIMIT 5;`
	text := strings.TrimSpace(name + " " + ver)
	if text == "" {
		return nil, nil
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, text)
	vulnQueryCounter.WithLabelValues(label).Inc()
	vulnQueryDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("text query: %w", err)
	}
	defer rows.Close()
	var out []vulnenrich.Vulnerability
	for rows.Next() {
		v, err := scanVuln(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("text query: %w", err)
	}
	return vulnenrich.Deduplicate(out), nil
}

// Query runs a statement returning vulnerability rows with a trailing
// version expression column, and filters the rows against the identifier's
// version.
func (s *VulnStore) query(ctx context.Context, label, softwareVersion, query string, args ...any) ([]vulnenrich.Vulnerability, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	vulnQueryCounter.WithLabelValues(label).Inc()
	vulnQueryDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", label, err)
	}
	defer rows.Close()

	var out []vulnenrich.Vulnerability
	for rows.Next() {
		var (
			v    vulnenrich.Vulnerability
			expr *string
		)
		if err := rows.Scan(&v.ID, &v.Description, &v.CVSSScore, &v.Published, &v.Modified, &v.References, &expr); err != nil {
			return nil, fmt.Errorf("%s scan: %w", label, err)
		}
		v.Severity = vulnenrich.SeverityFromScore(v.CVSSScore)
		if !versionApplies(softwareVersion, expr) {
			continue
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s query: %w", label, err)
	}
	return out, nil
}

// VersionApplies reports whether a row's version expression admits the
// software version. A missing or empty expression applies to all versions.
func versionApplies(software string, expr *string) bool {
	if expr == nil || *expr == "" {
		return true
	}
	ok, _ := version.MatchCPEVersion(software, *expr)
	return ok
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVuln(r scanner) (vulnenrich.Vulnerability, error) {
	var v vulnenrich.Vulnerability
	if err := r.Scan(&v.ID, &v.Description, &v.CVSSScore, &v.Published, &v.Modified, &v.References); err != nil {
		return v, fmt.Errorf("scan: %w", err)
	}
	v.Severity = vulnenrich.SeverityFromScore(v.CVSSScore)
	return v, nil
}
