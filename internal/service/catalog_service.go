package service

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/pricing"
	"storefront-service/internal/store"
)

// FlashSaleSource supplies the flash sales products are priced against
type FlashSaleSource interface {
	FlashSales(ctx context.Context) ([]models.FlashSale, error)
}

// ProductView is a catalog product with its current selling price
type ProductView struct {
	models.Product
	Pricing pricing.Quote `json:"pricing"`
	InStock bool          `json:"in_stock"`
}

// CatalogService handles product and category reads
type CatalogService struct {
	repo  store.Querier
	sales FlashSaleSource
	now   func() time.Time
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo store.Querier, sales FlashSaleSource) *CatalogService {
	return &CatalogService{repo: repo, sales: sales, now: time.Now}
}

// GetProduct returns a product with price, stock and effective display price
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*ProductView, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sales, err := s.sales.FlashSales(ctx)
	if err != nil {
		return nil, err
	}

	view := s.view(product, sales, s.now())
	return &view, nil
}

// ListProducts lists products priced against the live flash sales
func (s *CatalogService) ListProducts(ctx context.Context, filter store.ProductFilter) ([]ProductView, error) {
	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	sales, err := s.sales.FlashSales(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]ProductView, 0, len(products))
	for i := range products {
		views = append(views, s.view(&products[i], sales, now))
	}
	return views, nil
}

func (s *CatalogService) view(p *models.Product, sales []models.FlashSale, now time.Time) ProductView {
	return ProductView{
		Product: *p,
		Pricing: pricing.QuoteProduct(p, sales, now),
		InStock: p.HasStock(1),
	}
}

// CategoryTree returns top-level categories with their children nested
func (s *CatalogService) CategoryTree(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	children := make(map[int64][]models.Category)
	for _, c := range categories {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	roots := make([]models.Category, 0, len(categories))
	for _, c := range categories {
		if c.ParentID == nil {
			c.Children = children[c.ID]
			roots = append(roots, c)
		}
	}
	return roots, nil
}
