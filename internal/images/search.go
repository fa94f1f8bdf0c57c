// internal/images/search.go
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"menuscan/internal/common/auth"
	"menuscan/internal/common/errors"
	"menuscan/internal/common/httpclient"
	"menuscan/internal/common/logger"
	"menuscan/internal/common/metrics"
)

// Result is one image candidate returned by the search backend.
type Result struct {
	ItemName        string  `json:"item_name"`
	PhotoURL        string  `json:"photo_url"`
	ThumbnailURL    string  `json:"thumbnail_url"`
	ConfidenceScore float64 `json:"confidence_score"`
	Source          string  `json:"source"`
	AltText         string  `json:"alt_text"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// SearchClient fetches image candidates keyed by item name. Debouncing of
// rapid-fire searches is a caller responsibility; the client issues exactly
// one request per call.
type SearchClient struct {
	baseURL    string
	tokens     auth.TokenProvider
	httpClient *httpclient.Client
	logger     logger.Logger
}

func NewSearchClient(baseURL string, tokens auth.TokenProvider, log logger.Logger) *SearchClient {
	return &SearchClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpclient.NewClient(15 * time.Second),
		logger:     log.WithFields(map[string]interface{}{"component": "image-search"}),
	}
}

// Search returns up to limit candidates ordered by descending confidence.
// An empty item name yields an empty result without issuing a request.
func (c *SearchClient) Search(ctx context.Context, itemName string, limit int) ([]Result, error) {
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 6
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, errors.NewAuthError(err.Error())
	}

	query := url.Values{}
	query.Set("item", itemName)
	query.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/images/search?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.NewExternalServiceError("image-search", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		metrics.ImageSearches.WithLabelValues("error").Inc()
		return nil, errors.NewExternalServiceError("image-search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		metrics.ImageSearches.WithLabelValues("auth_error").Inc()
		return nil, errors.NewAuthError(fmt.Sprintf("search rejected with status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ImageSearches.WithLabelValues("error").Inc()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, errors.NewExternalServiceError("image-search",
			fmt.Errorf("search failed with status %d: %s", resp.StatusCode, string(respBody)))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		metrics.ImageSearches.WithLabelValues("error").Inc()
		return nil, errors.NewExternalServiceError("image-search",
			fmt.Errorf("failed to decode search response: %w", err))
	}

	results := decoded.Results
	// The backend promises confidence ordering; re-sort in case it doesn't.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ConfidenceScore > results[j].ConfidenceScore
	})
	if len(results) > limit {
		results = results[:limit]
	}

	metrics.ImageSearches.WithLabelValues("ok").Inc()
	c.logger.Debug("image search completed", map[string]interface{}{
		"item":    itemName,
		"results": len(results),
	})

	return results, nil
}
