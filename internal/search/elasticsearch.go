package search

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/jjjimenez100/backend-coding-test/config"
	"github.com/jjjimenez100/backend-coding-test/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrSearchDisabled = errors.New("search is disabled")

// RideIndexer is the write side of ride search
type RideIndexer interface {
	IndexRide(ctx context.Context, ride models.Ride) error
	IndexRides(ctx context.Context, rides []models.Ride) error
}

// RideSearcher is the read side of ride search
type RideSearcher interface {
	SearchRides(ctx context.Context, term string, limit int) ([]models.Ride, error)
}

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

var (
	_ RideIndexer  = (*ElasticClient)(nil)
	_ RideSearcher = (*ElasticClient)(nil)
)

// NewElasticClient creates a new Elasticsearch client. An empty URL returns
// ErrSearchDisabled.
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if cfg.URL == "" {
		return nil, ErrSearchDisabled
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{client: client, config: cfg}, nil
}

func (c *ElasticClient) indexName() string {
	return config.FormatIndex(c.config, c.config.Index)
}

// IndexRide stores one ride document keyed by its id
func (c *ElasticClient) IndexRide(ctx context.Context, ride models.Ride) error {
	doc, err := json.Marshal(ride)
	if err != nil {
		return errors.Wrap(err, "failed to marshal ride document")
	}

	req := esapi.IndexRequest{
		Index:      c.indexName(),
		DocumentID: strconv.FormatInt(ride.ID(), 10),
		Body:       bytes.NewReader(doc),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if err := responseError(res, "index"); err != nil {
		return err
	}

	log.Debug().Int64("ride_id", ride.ID()).Msg("ride indexed")
	return nil
}

// IndexRides stores a batch of rides with a single bulk request
func (c *ElasticClient) IndexRides(ctx context.Context, rides []models.Ride) error {
	if len(rides) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, ride := range rides {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": c.indexName(),
				"_id":    strconv.FormatInt(ride.ID(), 10),
			},
		}
		if err := enc.Encode(action); err != nil {
			return errors.Wrap(err, "failed to encode bulk action")
		}
		if err := enc.Encode(ride); err != nil {
			return errors.Wrap(err, "failed to encode ride document")
		}
	}

	req := esapi.BulkRequest{
		Body:    &body,
		Refresh: "false",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch bulk request")
	}
	defer res.Body.Close()

	if err := responseError(res, "bulk"); err != nil {
		return err
	}

	var result struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return errors.Wrap(err, "failed to parse Elasticsearch bulk response")
	}
	if result.Errors {
		return errors.New("Elasticsearch bulk request reported item failures")
	}
	return nil
}

// SearchRides runs a full-text match over rider, driver and vehicle names
func (c *ElasticClient) SearchRides(ctx context.Context, term string, limit int) ([]models.Ride, error) {
	q := map[string]interface{}{
		"size": limit,
		"sort": []interface{}{map[string]interface{}{"rideID": "asc"}},
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"riderName", "driverName", "driverVehicle"},
			},
		},
	}

	body, err := json.Marshal(q)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{c.indexName()},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if err := responseError(res, "search"); err != nil {
		return nil, err
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	rides := make([]models.Ride, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var ride models.Ride
		if err := json.Unmarshal(hit.Source, &ride); err != nil {
			log.Warn().Err(err).Msg("skipping unreadable ride document")
			continue
		}
		rides = append(rides, ride)
	}
	return rides, nil
}

// Ping checks that the cluster answers
func (c *ElasticClient) Ping(ctx context.Context) error {
	res, err := c.client.Ping(c.client.Ping.WithContext(ctx))
	if err != nil {
		return errors.Wrap(err, "failed to ping Elasticsearch")
	}
	defer res.Body.Close()
	return responseError(res, "ping")
}

func responseError(res *esapi.Response, op string) error {
	if !res.IsError() {
		return nil
	}

	var e map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
		return errors.Errorf("Elasticsearch %s error: %s", op, res.Status())
	}
	return errors.Errorf("Elasticsearch %s error: %v", op, e)
}
