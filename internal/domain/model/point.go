package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"
)

// pointIDBytes is the number of digest bytes kept for a point id (16 hex chars).
const pointIDBytes = 8

// PointID derives the deterministic id of a knowledge point.
func PointID(content, sourceID, category string) string {
	h := sha256.New()
	h.Write([]byte(content))
	h.Write([]byte{0})
	h.Write([]byte(sourceID))
	h.Write([]byte{0})
	h.Write([]byte(category))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:pointIDBytes])
}

// Observation is a point as reported by a collaborator, before validation.
type Observation struct {
	Content    string
	SourceID   string
	Category   string
	Value      *float64
	Confidence float64
	Timestamp  time.Time
}

// ID returns the id the observation would be stored under.
func (o Observation) ID() string {
	return PointID(o.Content, o.SourceID, o.Category)
}

// KnowledgePoint is one stored observation with provenance.
// Only the usage counter changes after creation.
type KnowledgePoint struct {
	ID         string
	Content    string
	Value      *float64
	Source     *Source
	Category   string
	Confidence float64
	Timestamp  time.Time

	usage atomic.Int64
}

// NewKnowledgePoint builds a point from a validated observation.
func NewKnowledgePoint(obs Observation, src *Source) *KnowledgePoint {
	return &KnowledgePoint{
		ID:         obs.ID(),
		Content:    obs.Content,
		Value:      obs.Value,
		Source:     src,
		Category:   obs.Category,
		Confidence: obs.Confidence,
		Timestamp:  obs.Timestamp,
	}
}

// HasValue reports whether the point carries a numerical value.
func (p *KnowledgePoint) HasValue() bool {
	return p.Value != nil
}

// Touch increments the usage counter and returns the new count.
func (p *KnowledgePoint) Touch() int64 {
	return p.usage.Add(1)
}

// Usage returns how many times the point has been read.
func (p *KnowledgePoint) Usage() int64 {
	return p.usage.Load()
}

// PointView is the read shape returned by category queries.
type PointView struct {
	ID                string   `json:"id"`
	Content           string   `json:"content"`
	SourceID          string   `json:"source_id"`
	SourceName        string   `json:"source_name"`
	SourceOrg         string   `json:"source_organization"`
	SourceCredibility float64  `json:"source_credibility"`
	Confidence        float64  `json:"confidence"`
	Freshness         string   `json:"freshness"`
	Value             *float64 `json:"numerical_value,omitempty"`
	Usage             int64    `json:"usage_count"`
}

// Float returns a pointer to v; handy for optional values.
func Float(v float64) *float64 { return &v }
