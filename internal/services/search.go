package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"leafsense_back_end/internal/models"
)

const productIndex = "products"

// ProductIndex mirrors products into Elasticsearch for full-text search.
type ProductIndex struct {
	es *elasticsearch.Client
}

func NewProductIndex(es *elasticsearch.Client) *ProductIndex {
	if es == nil {
		return nil
	}
	return &ProductIndex{es: es}
}

type productDoc struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	DiseaseType string  `json:"disease_type"`
	Usage       string  `json:"usage"`
	Price       float64 `json:"price"`
	CategoryID  *uint   `json:"category_id,omitempty"`
	IsActive    bool    `json:"is_active"`
}

func (ix *ProductIndex) Index(ctx context.Context, p *models.Product) {
	if ix == nil {
		return
	}
	data, err := json.Marshal(productDoc{
		Name:        p.Name,
		Description: p.Description,
		DiseaseType: p.DiseaseType,
		Usage:       p.Usage,
		Price:       p.Price,
		CategoryID:  p.CategoryID,
		IsActive:    p.IsActive,
	})
	if err != nil {
		return
	}
	req := esapi.IndexRequest{
		Index:      productIndex,
		DocumentID: strconv.FormatUint(uint64(p.ID), 10),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		log.Println("❌ Elastic index request:", err)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Printf("⚠️ Elastic rejected product %d: %s", p.ID, res.String())
	}
}

func (ix *ProductIndex) Remove(ctx context.Context, id uint) {
	if ix == nil {
		return
	}
	req := esapi.DeleteRequest{Index: productIndex, DocumentID: strconv.FormatUint(uint64(id), 10)}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		log.Println("❌ Elastic delete request:", err)
		return
	}
	res.Body.Close()
}

// Search returns matching product ids, best match first.
func (ix *ProductIndex) Search(ctx context.Context, query string, limit int) ([]uint, error) {
	if ix == nil {
		return nil, errors.New("elasticsearch not configured")
	}
	var buf bytes.Buffer
	q := map[string]any{
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     query,
						"fields":    []string{"name^3", "disease_type^2", "description", "usage"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]any{"term": map[string]any{"is_active": true}},
			},
		},
		"_source": false,
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("encode search: %w", err)
	}

	res, err := esapi.SearchRequest{Index: []string{productIndex}, Body: &buf}.Do(ctx, ix.es)
	if err != nil {
		return nil, fmt.Errorf("elastic search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elastic search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}
	ids := make([]uint, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
