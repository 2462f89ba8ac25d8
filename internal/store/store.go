// Package store is the GORM backed persistence layer for the catalog and
// orders.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("dsync-shop/store")

var ErrNotFound = errors.New("record not found")

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) productQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("products.*, categories.name AS category_name").
		Joins("LEFT JOIN categories ON categories.id = products.category_id")
}

// ListActiveProducts returns active products newest first. A non-empty
// category restricts the result to products in the category with that name.
func (s *Store) ListActiveProducts(ctx context.Context, category string) ([]models.Product, error) {
	ctx, span := tracer.Start(ctx, "store.list_active_products")
	defer span.End()

	query := s.productQuery(ctx).Where("products.active = ?", true)
	if category != "" {
		span.SetAttributes(attribute.String("filter.category", category))
		query = query.Where("categories.name = ?", category)
	}

	products := make([]models.Product, 0)
	if err := query.Order("products.created_at DESC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	ctx, span := tracer.Start(ctx, "store.get_product")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", int64(id)))

	var product models.Product
	if err := s.productQuery(ctx).Where("products.id = ?", id).Take(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	ctx, span := tracer.Start(ctx, "store.create_product")
	defer span.End()

	return s.db.WithContext(ctx).Create(product).Error
}

// UpdateProduct applies column updates to one product. Keys are column
// names.
func (s *Store) UpdateProduct(ctx context.Context, id uint, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "store.update_product")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", int64(id)))

	return s.updateByID(ctx, &models.Product{}, id, updates)
}

func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	ctx, span := tracer.Start(ctx, "store.delete_product")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", int64(id)))

	return s.deleteByID(ctx, &models.Product{}, id)
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	ctx, span := tracer.Start(ctx, "store.list_categories")
	defer span.End()

	categories := make([]models.Category, 0)
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).Take(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	ctx, span := tracer.Start(ctx, "store.create_category")
	defer span.End()

	return s.db.WithContext(ctx).Create(category).Error
}

func (s *Store) UpdateCategory(ctx context.Context, id uint, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "store.update_category")
	defer span.End()

	span.SetAttributes(attribute.Int64("category.id", int64(id)))

	return s.updateByID(ctx, &models.Category{}, id, updates)
}

// DeleteCategory removes a category. Child categories and products keep
// existing with their reference cleared.
func (s *Store) DeleteCategory(ctx context.Context, id uint) error {
	ctx, span := tracer.Start(ctx, "store.delete_category")
	defer span.End()

	span.SetAttributes(attribute.Int64("category.id", int64(id)))

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Category{}).Where("parent_id = ?", id).Update("parent_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Category{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// RecordOrder inserts the order and its single line in one transaction.
// The line's OrderID is set from the generated order id.
func (s *Store) RecordOrder(ctx context.Context, order *models.Order, item *models.OrderItem) error {
	ctx, span := tracer.Start(ctx, "store.record_order")
	defer span.End()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		item.OrderID = order.ID
		if err := tx.Omit("Product").Create(item).Error; err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(
		attribute.Int64("order.id", int64(order.ID)),
		attribute.Int64("order_item.id", int64(item.ID)),
	)
	return nil
}

func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	ctx, span := tracer.Start(ctx, "store.list_orders")
	defer span.End()

	orders := make([]models.Order, 0)
	err := s.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) updateByID(ctx context.Context, model any, id uint, updates map[string]any) error {
	if len(updates) == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return nil
	}

	result := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, model any, id uint) error {
	result := s.db.WithContext(ctx).Delete(model, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
