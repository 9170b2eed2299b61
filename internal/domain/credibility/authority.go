package credibility

import (
	"context"
	"strings"
	"time"

	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/pkg/logger"
	"github.com/okian/credence/pkg/metrics"
	"github.com/okian/credence/pkg/ttlcache"
)

const (
	// DefaultAuthorityTTL is how long an authority check is reused.
	DefaultAuthorityTTL = 24 * time.Hour

	authorityMaxAge         = 365 * day
	authorityMinCredibility = 80
	authorityQuorum         = 2
)

// DefaultIssuers is the curated list of authoritative organizations.
func DefaultIssuers() []string {
	return []string{
		"U.S. Census Bureau",
		"Bureau of Labor Statistics",
		"Securities and Exchange Commission",
		"Federal Reserve",
		"National Science Foundation",
		"Small Business Administration",
		"World Bank",
		"OECD",
		"International Monetary Fund",
		"Eurostat",
	}
}

// AuthorityVerifier decides whether a source is an authority, caching the
// verdict per source id.
type AuthorityVerifier struct {
	issuers map[string]struct{}
	cache   *ttlcache.Cache[string, bool]
	now     func() time.Time
	logger  logger.Logger
}

// VerifierOption configures an AuthorityVerifier.
type VerifierOption func(*verifierConfig)

type verifierConfig struct {
	issuers []string
	ttl     time.Duration
	now     func() time.Time
	logger  logger.Logger
}

// WithIssuers replaces the authoritative issuer list.
func WithIssuers(issuers []string) VerifierOption {
	return func(c *verifierConfig) {
		if len(issuers) > 0 {
			c.issuers = issuers
		}
	}
}

// WithTTL sets how long verdicts are cached.
func WithTTL(ttl time.Duration) VerifierOption {
	return func(c *verifierConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithVerifierClock replaces time.Now.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(c *verifierConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithVerifierLogger sets a custom logger.
func WithVerifierLogger(l logger.Logger) VerifierOption {
	return func(c *verifierConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewAuthorityVerifier creates a verifier with the default issuer list and a
// 24 hour cache.
func NewAuthorityVerifier(opts ...VerifierOption) *AuthorityVerifier {
	cfg := verifierConfig{
		issuers: DefaultIssuers(),
		ttl:     DefaultAuthorityTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("authority")
	}

	v := &AuthorityVerifier{
		issuers: make(map[string]struct{}, len(cfg.issuers)),
		cache:   ttlcache.New[string, bool](cfg.ttl, ttlcache.WithClock[string, bool](cfg.now)),
		now:     cfg.now,
		logger:  cfg.logger,
	}
	for _, iss := range cfg.issuers {
		v.issuers[normalizeOrg(iss)] = struct{}{}
	}
	return v
}

func normalizeOrg(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Verify reports whether src meets at least two of: updated within 365 days,
// issued by an authoritative organization, credibility of 80 or more.
func (v *AuthorityVerifier) Verify(ctx context.Context, src *model.Source) bool {
	verified, hit := v.cache.GetOrCompute(src.ID, func() bool {
		return v.check(ctx, src)
	})
	metrics.RecordAuthorityCache(hit)
	return verified
}

// Forget drops the cached verdict for id so the next Verify recomputes it.
func (v *AuthorityVerifier) Forget(ctx context.Context, id string) {
	v.cache.Delete(id)
	v.logger.Debug(ctx, "authority verdict forgotten", logger.String("source_id", id))
}

func (v *AuthorityVerifier) check(ctx context.Context, src *model.Source) bool {
	recent := !src.LastUpdated.IsZero() && v.now().Sub(src.LastUpdated) < authorityMaxAge
	_, issuer := v.issuers[normalizeOrg(src.Organization)]
	credible := src.CredibilityScore >= authorityMinCredibility

	met := 0
	for _, ok := range []bool{recent, issuer, credible} {
		if ok {
			met++
		}
	}
	verified := met >= authorityQuorum
	v.logger.Debug(ctx, "authority check",
		logger.String("source_id", src.ID),
		logger.Bool("recent", recent),
		logger.Bool("issuer", issuer),
		logger.Bool("credible", credible),
		logger.Bool("verified", verified),
	)
	return verified
}
