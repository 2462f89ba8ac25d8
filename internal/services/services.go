package services

import (
	"context"
	"errors"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/models"

	"go.opentelemetry.io/otel"
)

var (
	tracer = otel.Tracer("dsync-shop")
	meter  = otel.Meter("dsync-shop")
)

var (
	ErrProductNotFound          = errors.New("product not found")
	ErrCategoryNotFound         = errors.New("category not found")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrValidation               = errors.New("validation failed")
)

// ProductReader is the catalog lookup shared by checkout and order
// materialization.
type ProductReader interface {
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
}

type OrderStore interface {
	ProductReader
	RecordOrder(ctx context.Context, order *models.Order, item *models.OrderItem) error
}

type CatalogStore interface {
	ProductReader
	ListActiveProducts(ctx context.Context, category string) ([]models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, id uint, updates map[string]any) error
	DeleteProduct(ctx context.Context, id uint) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, id uint, updates map[string]any) error
	DeleteCategory(ctx context.Context, id uint) error

	ListOrders(ctx context.Context) ([]models.Order, error)
}
