// Package repository defines the evidence store interface and its in-memory
// implementation.
package repository

import (
	"context"

	"github.com/okian/credence/internal/domain/model"
)

// Store provides read/write access to stored knowledge points.
type Store interface {
	// Put stores p unless a point with the same id exists. It returns the
	// stored point and whether p was inserted.
	Put(ctx context.Context, p *model.KnowledgePoint) (*model.KnowledgePoint, bool, error)

	// Get returns the point stored under id.
	// Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id string) (*model.KnowledgePoint, error)

	// ByCategory returns every point of category in insertion order.
	ByCategory(ctx context.Context, category string) ([]*model.KnowledgePoint, error)

	// All returns every stored point in insertion order.
	All(ctx context.Context) ([]*model.KnowledgePoint, error)

	// Categories returns the distinct categories seen so far, sorted.
	Categories(ctx context.Context) []string

	// Len returns the number of stored points.
	Len(ctx context.Context) int
}
