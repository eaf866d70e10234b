package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ragc/internal/domain"
	"ragc/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
type Storage struct {
	url    string
	apiKey string
	client *http.Client
}

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

// Qdrant spells metrics in title case.
var distanceNames = map[domain.Distance]string{
	domain.DistanceCosine:    "Cosine",
	domain.DistanceEuclid:    "Euclid",
	domain.DistanceDot:       "Dot",
	domain.DistanceManhattan: "Manhattan",
}

func (s *Storage) CreateCollection(ctx context.Context, name string, size int, distance domain.Distance) error {
	metric, ok := distanceNames[distance]
	if !ok {
		return fmt.Errorf("unknown distance %q", distance)
	}
	if _, err := s.CollectionInfo(ctx, name); err == nil {
		return fmt.Errorf("%w: %s", vectorstore.ErrCollectionExists, name)
	}
	body := map[string]any{
		"vectors": map[string]any{"size": size, "distance": metric},
	}
	return s.send(ctx, http.MethodPut, s.collectionURL(name), name, body, nil)
}

func (s *Storage) DeleteCollection(ctx context.Context, name string) error {
	if _, err := s.CollectionInfo(ctx, name); err != nil {
		return err
	}
	return s.send(ctx, http.MethodDelete, s.collectionURL(name), name, nil, nil)
}

func (s *Storage) ListCollections(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := s.send(ctx, http.MethodGet, s.url+"/collections", "", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, c := range resp.Result.Collections {
		names = append(names, c.Name)
	}
	return names, nil
}

func (s *Storage) CollectionInfo(ctx context.Context, name string) (domain.CollectionInfo, error) {
	var resp struct {
		Result struct {
			PointsCount  int  `json:"points_count"`
			VectorsCount *int `json:"vectors_count"`
			Config       struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := s.send(ctx, http.MethodGet, s.collectionURL(name), name, nil, &resp); err != nil {
		return domain.CollectionInfo{}, err
	}
	count := resp.Result.PointsCount
	if resp.Result.VectorsCount != nil {
		count = *resp.Result.VectorsCount
	}
	distance, _ := domain.ParseDistance(resp.Result.Config.Params.Vectors.Distance)
	return domain.CollectionInfo{
		Name:         name,
		VectorsCount: count,
		VectorSize:   resp.Result.Config.Params.Vectors.Size,
		Distance:     distance,
	}, nil
}

func (s *Storage) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	body := make([]map[string]any, len(points))
	for i, p := range points {
		body[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		}
	}
	return s.send(ctx, http.MethodPut, s.collectionURL(collection)+"/points?wait=true", collection, map[string]any{"points": body}, nil)
}

func (s *Storage) Search(ctx context.Context, collection string, vector []float64, limit int, scoreThreshold float64) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if scoreThreshold > 0 {
		req["score_threshold"] = scoreThreshold
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.send(ctx, http.MethodPost, s.collectionURL(collection)+"/points/search", collection, req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{ID: fmt.Sprint(r.ID), Score: r.Score, Payload: r.Payload})
	}
	return results, nil
}

func (s *Storage) collectionURL(name string) string {
	return s.url + "/collections/" + url.PathEscape(name)
}

// send issues one request. A 404 on a collection path becomes ErrCollectionNotFound.
func (s *Storage) send(ctx context.Context, method, target, collection string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound && collection != "" {
		return fmt.Errorf("%w: %s", vectorstore.ErrCollectionNotFound, collection)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, target, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
