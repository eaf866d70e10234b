package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"ragc/internal/domain"
	"ragc/internal/vectorstore"
)

type collection struct {
	size     int
	distance domain.Distance
	ids      map[string]int
	points   []domain.Point
}

// Storage is an in-memory vector store using brute-force similarity.
type Storage struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func NewStorage() *Storage { return &Storage{collections: make(map[string]*collection)} }

func (s *Storage) CreateCollection(_ context.Context, name string, size int, distance domain.Distance) error {
	if size <= 0 {
		return fmt.Errorf("invalid vector size %d", size)
	}
	if _, ok := domain.ParseDistance(string(distance)); !ok {
		return fmt.Errorf("unknown distance %q", distance)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return fmt.Errorf("%w: %s", vectorstore.ErrCollectionExists, name)
	}
	s.collections[name] = &collection{size: size, distance: distance, ids: make(map[string]int)}
	return nil
}

func (s *Storage) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("%w: %s", vectorstore.ErrCollectionNotFound, name)
	}
	delete(s.collections, name)
	return nil
}

func (s *Storage) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) CollectionInfo(_ context.Context, name string) (domain.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return domain.CollectionInfo{}, fmt.Errorf("%w: %s", vectorstore.ErrCollectionNotFound, name)
	}
	return domain.CollectionInfo{
		Name:         name,
		VectorsCount: len(c.points),
		VectorSize:   c.size,
		Distance:     c.distance,
	}, nil
}

// Upsert replaces points with a known ID and appends the rest.
func (s *Storage) Upsert(_ context.Context, name string, points []domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", vectorstore.ErrCollectionNotFound, name)
	}
	for _, p := range points {
		if len(p.Vector) != c.size {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(p.Vector), c.size)
		}
	}
	for _, p := range points {
		if i, ok := c.ids[p.ID]; ok {
			c.points[i] = p
			continue
		}
		c.ids[p.ID] = len(c.points)
		c.points = append(c.points, p)
	}
	return nil
}

// Search returns up to limit points ordered best first. For cosine and dot the
// score is a similarity; for euclid and manhattan it is a distance and lower wins.
// A positive scoreThreshold drops results on the wrong side of it.
func (s *Storage) Search(_ context.Context, name string, vector []float64, limit int, scoreThreshold float64) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrCollectionNotFound, name)
	}
	if limit <= 0 {
		limit = 5
	}
	if len(vector) != c.size {
		return nil, fmt.Errorf("vector dimension mismatch: got %d, want %d", len(vector), c.size)
	}

	higherBetter := c.distance == domain.DistanceCosine || c.distance == domain.DistanceDot
	results := make([]domain.SearchResult, 0, len(c.points))
	for _, p := range c.points {
		score := Score(c.distance, p.Vector, vector)
		if scoreThreshold > 0 {
			if higherBetter && score < scoreThreshold {
				continue
			}
			if !higherBetter && score > scoreThreshold {
				continue
			}
		}
		results = append(results, domain.SearchResult{ID: p.ID, Score: score, Payload: clonePayload(p.Payload)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if higherBetter {
			return results[i].Score > results[j].Score
		}
		return results[i].Score < results[j].Score
	})
	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// Score compares two vectors of equal length with the given metric.
func Score(distance domain.Distance, a, b []float64) float64 {
	switch distance {
	case domain.DistanceDot:
		return dot(a, b)
	case domain.DistanceEuclid:
		sum := 0.0
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return math.Sqrt(sum)
	case domain.DistanceManhattan:
		sum := 0.0
		for i := range a {
			sum += math.Abs(a[i] - b[i])
		}
		return sum
	default:
		na, nb := math.Sqrt(dot(a, a)), math.Sqrt(dot(b, b))
		if na == 0 || nb == 0 {
			return 0
		}
		return dot(a, b) / (na * nb)
	}
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func clonePayload(p domain.Payload) domain.Payload {
	if p == nil {
		return nil
	}
	out := make(domain.Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
