// Package registry holds the immutable metric catalog. The catalog is
// validated once at load time and shared lock-free across all sessions;
// an invalid document prevents process startup.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/uimetrics/uima-go-api/internal/models"
)

// ErrNotFound indicates the requested metric id is not in the catalog.
var ErrNotFound = errors.New("metric not found")

// ValidationError describes why a catalog document was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid metric catalog: %s", e.Reason)
}

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Registry is the read-only metric catalog.
type Registry struct {
	metrics    map[string]models.MetricDescriptor
	order      []string
	categories []models.Category
}

// LoadFile reads and validates a catalog document from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metric catalog: %w", err)
	}
	return Load(data)
}

// Load parses and validates a catalog document. It fails on duplicate ids,
// non-contiguous result indices and malformed or shadowed score bands.
func Load(data []byte) (*Registry, error) {
	if err := validateSchema(data); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	doc, err := parseDocument(data)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	reg := &Registry{
		metrics:    make(map[string]models.MetricDescriptor, len(doc.Order)),
		categories: doc.Categories,
	}

	for _, id := range doc.Order {
		if _, exists := reg.metrics[id]; exists {
			return nil, invalidf("duplicate metric id %q", id)
		}

		var desc models.MetricDescriptor
		if err := json.Unmarshal(doc.Metrics[id], &desc); err != nil {
			return nil, invalidf("metric %q: %v", id, err)
		}
		desc.ID = id

		if err := validateDescriptor(desc); err != nil {
			return nil, err
		}

		reg.metrics[id] = desc
		reg.order = append(reg.order, id)
	}

	return reg, nil
}

func validateDescriptor(desc models.MetricDescriptor) error {
	seen := make(map[string]struct{}, len(desc.Results))
	for i, result := range desc.Results {
		if result.Index != i {
			return invalidf("metric %q: result indices must be contiguous from 0, got %d at position %d", desc.ID, result.Index, i)
		}
		if _, dup := seen[result.ID]; dup {
			return invalidf("metric %q: duplicate result id %q", desc.ID, result.ID)
		}
		seen[result.ID] = struct{}{}

		if !result.Type.Valid() {
			return invalidf("metric %q result %q: unknown value type %q", desc.ID, result.ID, result.Type)
		}
		if result.Type == models.ValueTypeImage && len(result.Scores) > 0 {
			return invalidf("metric %q result %q: image results cannot declare score bands", desc.ID, result.ID)
		}

		if err := validateBands(desc.ID, result); err != nil {
			return err
		}
	}

	return nil
}

// validateBands rejects inverted ranges and declaration orders in which an
// earlier band with an unbounded upper end shadows every later band.
func validateBands(metricID string, result models.ResultDescriptor) error {
	for i, band := range result.Scores {
		if band.Min != nil && band.Max != nil && *band.Min > *band.Max {
			return invalidf("metric %q result %q band %q: min %g exceeds max %g", metricID, result.ID, band.ID, *band.Min, *band.Max)
		}
		if band.Max == nil && i < len(result.Scores)-1 {
			return invalidf("metric %q result %q band %q: unbounded upper end shadows later bands", metricID, result.ID, band.ID)
		}
	}
	return nil
}

// Lookup returns the descriptor for the given metric id.
func (r *Registry) Lookup(id string) (models.MetricDescriptor, error) {
	desc, ok := r.metrics[id]
	if !ok {
		return models.MetricDescriptor{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return desc, nil
}

// Has reports whether the metric id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.metrics[id]
	return ok
}

// All returns every descriptor in registration order.
func (r *Registry) All() []models.MetricDescriptor {
	out := make([]models.MetricDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.metrics[id])
	}
	return out
}

// ListByCategory returns the category's descriptors in registration order.
func (r *Registry) ListByCategory(categoryID string) []models.MetricDescriptor {
	var out []models.MetricDescriptor
	for _, id := range r.order {
		if desc := r.metrics[id]; desc.CategoryID == categoryID {
			out = append(out, desc)
		}
	}
	return out
}

// Categories returns the declared category list in document order.
func (r *Registry) Categories() []models.Category {
	return r.categories
}

// Len returns the number of registered metrics.
func (r *Registry) Len() int {
	return len(r.order)
}
