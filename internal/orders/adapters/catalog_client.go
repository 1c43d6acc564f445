package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"shop-api/internal/orders/ports"
	apperrors "shop-api/pkg/errors"
)

// HTTPCatalogClient implements CatalogClient against the catalog service's
// REST API
type HTTPCatalogClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPCatalogClient creates a new catalog client
func NewHTTPCatalogClient(baseURL string) *HTTPCatalogClient {
	return &HTTPCatalogClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type productResponse struct {
	Data struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Price     int64  `json:"price"`
		Available bool   `json:"available"`
	} `json:"data"`
}

// GetProduct retrieves a product by ID
func (c *HTTPCatalogClient) GetProduct(ctx context.Context, productID string) (*ports.ProductInfo, error) {
	reqURL := fmt.Sprintf("%s/api/v1/products/%s", c.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperrors.NewInternal("failed to build catalog request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewInternal("failed to call catalog service", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return nil, apperrors.NewNotFound("product", productID)
	default:
		return nil, apperrors.NewInternal(
			fmt.Sprintf("catalog service returned status %d", resp.StatusCode), nil)
	}

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.NewInternal("failed to decode catalog response", err)
	}

	return &ports.ProductInfo{
		ID:        body.Data.ID,
		Name:      body.Data.Name,
		Price:     body.Data.Price,
		Available: body.Data.Available,
	}, nil
}
