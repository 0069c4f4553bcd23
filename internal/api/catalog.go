package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"alphaboutique/internal/domain"
)

// ListProducts lists the catalog, optionally narrowed to one category
func (c *Client) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	path := "/products"
	if category != "" && category != "All" {
		path += "?" + url.Values{"category": {category}}.Encode()
	}
	products := []domain.Product{}
	if err := c.do(ctx, http.MethodGet, "products_list", path, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	if err := c.do(ctx, http.MethodGet, "products_get", "/products/"+escape(id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	var product domain.Product
	if err := c.do(ctx, http.MethodPost, "products_create", "/products", req, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "products_delete", "/products/"+escape(id), nil, nil)
}

func (c *Client) UpdateStock(ctx context.Context, id string, stock int) error {
	path := "/products/" + escape(id) + "/stock"
	return c.do(ctx, http.MethodPatch, "products_stock", path, domain.UpdateStockRequest{Stock: stock}, nil)
}

// ListCategories returns category names. The backend answers with either
// plain strings or {id, name} objects.
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var raw []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "categories_list", "/categories", nil, &raw); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(raw))
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			names = append(names, name)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, fmt.Errorf("decode category %s: %w", item, err)
		}
		if obj.Name != "" {
			names = append(names, obj.Name)
		}
	}
	return names, nil
}
