package registry

import (
	"context"
	"time"

	"github.com/okian/credence/internal/domain/model"
)

// DefaultCatalog returns the built-in sources registered at startup.
func DefaultCatalog() []model.Source {
	updated := func(raw string) time.Time {
		ts, _ := model.ParseTimestamp(raw)
		return ts
	}
	return []model.Source{
		{
			ID:               "census_bfs",
			Name:             "Business Formation Statistics",
			Organization:     "U.S. Census Bureau",
			Tier:             model.TierGovernment,
			CredibilityScore: 98,
			RateLimit:        model.RateLimit{Requests: 500, Per: 24 * time.Hour},
			Active:           true,
			Categories:       []string{"business_formation", "market_size"},
			Methodology:      "Administrative records from EIN applications, longitudinal series",
			LastUpdated:      updated("2026-09-15"),
		},
		{
			ID:               "bls_qcew",
			Name:             "Quarterly Census of Employment and Wages",
			Organization:     "Bureau of Labor Statistics",
			Tier:             model.TierGovernment,
			CredibilityScore: 97,
			RateLimit:        model.RateLimit{Requests: 25, Per: 24 * time.Hour},
			Active:           true,
			Categories:       []string{"employment", "wages"},
			Methodology:      "Quarterly census of employer filings",
			LastUpdated:      updated("2026-08-30"),
		},
		{
			ID:               "sec_edgar",
			Name:             "EDGAR Full-Text Search",
			Organization:     "Securities and Exchange Commission",
			Tier:             model.TierGovernment,
			CredibilityScore: 96,
			RateLimit:        model.RateLimit{Requests: 10, Per: time.Second},
			Active:           true,
			Categories:       []string{"funding_rate", "filings"},
			Methodology:      "Mandatory regulatory filings",
			LastUpdated:      updated("2026-10-01"),
		},
		{
			ID:               "nsf_ncses",
			Name:             "National Center for Science and Engineering Statistics",
			Organization:     "National Science Foundation",
			Tier:             model.TierGovernment,
			CredibilityScore: 95,
			Active:           true,
			Categories:       []string{"research_funding"},
			Methodology:      "National survey study with peer-reviewed methodology",
			LastUpdated:      updated("2026-03-01"),
		},
		{
			ID:               "kauffman_indicators",
			Name:             "Kauffman Indicators of Entrepreneurship",
			Organization:     "Ewing Marion Kauffman Foundation",
			Tier:             model.TierAcademic,
			CredibilityScore: 90,
			Active:           true,
			Categories:       []string{"business_formation", "survival_rate"},
			Methodology:      "Peer-reviewed longitudinal study of new employer businesses",
			LastUpdated:      updated("2026-05-20"),
		},
		{
			ID:               "pitchbook_nvca",
			Name:             "Venture Monitor",
			Organization:     "PitchBook",
			Tier:             model.TierProprietary,
			Segment:          model.SegmentVentureCapital,
			CredibilityScore: 88,
			Cost:             0.5,
			RateLimit:        model.RateLimit{Requests: 60, Per: time.Minute},
			Active:           true,
			Categories:       []string{"funding_rate", "valuation"},
			Methodology:      "Deal-level data curated by research analysts",
			LastUpdated:      updated("2026-10-05"),
		},
		{
			ID:               "crunchbase",
			Name:             "Crunchbase",
			Organization:     "Crunchbase",
			Tier:             model.TierIndustry,
			Segment:          model.SegmentVentureCapital,
			CredibilityScore: 80,
			Cost:             0.1,
			RateLimit:        model.RateLimit{Requests: 200, Per: time.Minute},
			Active:           true,
			Categories:       []string{"funding_rate", "valuation"},
			Methodology:      "Crowd-sourced and partner-submitted records",
			LastUpdated:      updated("2026-10-10"),
		},
		{
			ID:               "github_trends",
			Name:             "GitHub Trends",
			Organization:     "GitHub",
			Tier:             model.TierIndustry,
			CredibilityScore: 75,
			RateLimit:        model.RateLimit{Requests: 5000, Per: time.Hour},
			Active:           true,
			Categories:       []string{"developer_adoption"},
			Methodology:      "Platform activity telemetry",
			LastUpdated:      updated("2026-10-12"),
		},
		{
			ID:               "hn_sentiment",
			Name:             "Hacker News Sentiment",
			Organization:     "Y Combinator community",
			Tier:             model.TierCommunity,
			CredibilityScore: 65,
			RateLimit:        model.RateLimit{Requests: 30, Per: time.Minute},
			Active:           true,
			Categories:       []string{"developer_adoption", "sentiment"},
			Methodology:      "Comment sentiment sampling",
			LastUpdated:      updated("2026-10-14"),
		},
	}
}

// Load registers every source in catalog, stopping at the first invalid one.
func (r *Registry) Load(ctx context.Context, catalog []model.Source) error {
	for _, src := range catalog {
		if _, err := r.Register(ctx, src); err != nil {
			return err
		}
	}
	return nil
}
