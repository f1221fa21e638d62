package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/yigit/unisync/internal/app/projectors"
	"github.com/yigit/unisync/internal/config"
	"github.com/yigit/unisync/internal/pkg/apperrors"
	"github.com/yigit/unisync/internal/pkg/dberrors"
)

// ElasticSearch is the search store backed by Elasticsearch.
type ElasticSearch struct {
	client  *elasticsearch.Client
	indexes []string
}

// NewElasticSearch connects to the configured cluster
func NewElasticSearch(ctx context.Context, cfg *config.Config) (*ElasticSearch, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  cfg.SearchAddresses(),
		Username:   cfg.Search.Username,
		Password:   cfg.Search.Password,
		MaxRetries: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to establish elasticsearch connection: %w", classifySearch("", err))
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("failed to establish elasticsearch connection: %w", responseError("", res))
	}

	return &ElasticSearch{
		client:  client,
		indexes: []string{cfg.Search.SessionsIndex, cfg.Search.MaterialsIndex},
	}, nil
}

// EnsureIndex creates index with mapping unless it already exists.
func (e *ElasticSearch) EnsureIndex(ctx context.Context, index, mapping string) error {
	res, err := e.client.Indices.Exists([]string{index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return classifySearch(index, err)
	}
	res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return responseError(index, res)
	}

	res, err = e.client.Indices.Create(index,
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return classifySearch(index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		err := responseError(index, res)
		// another writer created it between the two calls
		if strings.Contains(err.Error(), "resource_already_exists_exception") {
			return nil
		}
		return err
	}
	return nil
}

// Index stores doc under id, replacing any previous version.
func (e *ElasticSearch) Index(ctx context.Context, index string, id int64, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return apperrors.NewSyncError(apperrors.KindWriteRejected, projectors.StoreSearch, index, err)
	}

	res, err := e.client.Index(index, bytes.NewReader(body),
		e.client.Index.WithDocumentID(strconv.FormatInt(id, 10)),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return classifySearch(index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError(index, res)
	}
	return nil
}

// Reset deletes both indices; missing ones are ignored.
func (e *ElasticSearch) Reset(ctx context.Context) error {
	res, err := e.client.Indices.Delete(e.indexes,
		e.client.Indices.Delete.WithIgnoreUnavailable(true),
		e.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete indices: %w", classifySearch("", err))
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to delete indices: %w", responseError("", res))
	}
	return nil
}

func (e *ElasticSearch) Close(context.Context) error { return nil }

// responseError turns an error response into a classified error: overload and server
// failures are transient, anything else is a rejection of the request itself.
func responseError(index string, res *esapi.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	err := fmt.Errorf("elasticsearch %s: %s", res.Status(), bytes.TrimSpace(raw))

	switch {
	case res.StatusCode == http.StatusRequestTimeout || res.StatusCode == http.StatusGatewayTimeout:
		return apperrors.NewSyncError(apperrors.KindTimeout, projectors.StoreSearch, index, err)
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
		return apperrors.NewSyncError(apperrors.KindConnectionLost, projectors.StoreSearch, index, err)
	default:
		return apperrors.NewSyncError(apperrors.KindWriteRejected, projectors.StoreSearch, index, err)
	}
}

func classifySearch(index string, err error) error {
	if err == nil {
		return nil
	}
	return dberrors.Classify(projectors.StoreSearch, index, err)
}
