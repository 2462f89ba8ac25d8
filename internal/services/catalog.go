package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/actions"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/logging"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/models"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/store"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type CatalogService struct {
	store    CatalogStore
	registry *actions.Registry
}

func NewCatalogService(store CatalogStore, registry *actions.Registry) *CatalogService {
	return &CatalogService{store: store, registry: registry}
}

// ProductInput is the body of product create and update requests. Nil
// fields are left untouched on update.
type ProductInput struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	CategoryID   *uint            `json:"category_id"`
	ImageURL     *string          `json:"image_url"`
	Stock        *int             `json:"stock"`
	Active       *bool            `json:"active"`
	Action       *string          `json:"action"`
	ActionParams map[string]any   `json:"action_params"`
}

type CategoryInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentID    *uint   `json:"parent_id"`
}

func (s *CatalogService) ListActiveProducts(ctx context.Context, category string) ([]models.Product, error) {
	return s.store.ListActiveProducts(ctx, category)
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *CatalogService) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.store.ListOrders(ctx)
}

func (s *CatalogService) CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	ctx, span := tracer.Start(ctx, "catalog.create_product")
	defer span.End()

	if input.Name == nil || strings.TrimSpace(*input.Name) == "" || input.Price == nil || input.Price.IsZero() {
		return nil, fmt.Errorf("%w: name and price are required", ErrValidation)
	}
	if input.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if input.Stock != nil && *input.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", ErrValidation)
	}

	action, params, err := s.validateAction(input.Action, input.ActionParams)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:         *input.Name,
		Description:  input.Description,
		Price:        input.Price.Round(2),
		CategoryID:   input.CategoryID,
		ImageURL:     input.ImageURL,
		Active:       true,
		Action:       action,
		ActionParams: params,
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Active != nil {
		product.Active = *input.Active
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("product.id", int64(product.ID)))
	logging.Info(ctx).Uint("product_id", product.ID).Str("name", product.Name).Msg("product created")

	return s.GetProduct(ctx, product.ID)
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, input ProductInput) (*models.Product, error) {
	ctx, span := tracer.Start(ctx, "catalog.update_product")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", int64(id)))

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
		}
		updates["price"] = input.Price.Round(2)
	}
	if input.CategoryID != nil {
		updates["category_id"] = *input.CategoryID
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, fmt.Errorf("%w: stock must not be negative", ErrValidation)
		}
		updates["stock"] = *input.Stock
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if input.Action != nil {
		action, params, err := s.validateAction(input.Action, input.ActionParams)
		if err != nil {
			return nil, err
		}
		updates["action"] = action
		updates["action_params"] = params
	} else if input.ActionParams != nil {
		current, err := s.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		_, params, err := s.validateAction(current.Action, input.ActionParams)
		if err != nil {
			return nil, err
		}
		updates["action_params"] = params
	}

	if err := s.store.UpdateProduct(ctx, id, updates); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	logging.Info(ctx).Uint("product_id", id).Int("fields", len(updates)).Msg("product updated")

	return s.GetProduct(ctx, id)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	ctx, span := tracer.Start(ctx, "catalog.delete_product")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", int64(id)))

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	logging.Info(ctx).Uint("product_id", id).Msg("product deleted")
	return nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, input CategoryInput) (*models.Category, error) {
	ctx, span := tracer.Start(ctx, "catalog.create_category")
	defer span.End()

	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	category := &models.Category{
		Name:        *input.Name,
		Description: input.Description,
		ParentID:    input.ParentID,
	}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("category.id", int64(category.ID)))
	logging.Info(ctx).Uint("category_id", category.ID).Str("name", category.Name).Msg("category created")

	return category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, input CategoryInput) (*models.Category, error) {
	ctx, span := tracer.Start(ctx, "catalog.update_category")
	defer span.End()

	span.SetAttributes(attribute.Int64("category.id", int64(id)))

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.ParentID != nil {
		if *input.ParentID == id {
			return nil, fmt.Errorf("%w: category cannot be its own parent", ErrValidation)
		}
		updates["parent_id"] = *input.ParentID
	}

	if err := s.store.UpdateCategory(ctx, id, updates); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	category, err := s.store.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	ctx, span := tracer.Start(ctx, "catalog.delete_category")
	defer span.End()

	span.SetAttributes(attribute.Int64("category.id", int64(id)))

	if err := s.store.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}

	logging.Info(ctx).Uint("category_id", id).Msg("category deleted")
	return nil
}

// validateAction checks an action key against the registry and its params
// against the action's declared schema. It returns the column values to
// store: an empty key clears both, and then params must be empty.
func (s *CatalogService) validateAction(key *string, params map[string]any) (*string, *string, error) {
	if key == nil || *key == "" {
		if len(params) > 0 {
			return nil, nil, fmt.Errorf("%w: action_params requires an action", ErrValidation)
		}
		return nil, nil, nil
	}

	var encoded []byte
	if params != nil {
		var err error
		if encoded, err = json.Marshal(params); err != nil {
			return nil, nil, fmt.Errorf("%w: encode action_params: %v", ErrValidation, err)
		}
		// Validate the stored form, not the caller's Go values.
		params = map[string]any{}
		if err := json.Unmarshal(encoded, &params); err != nil {
			return nil, nil, fmt.Errorf("%w: decode action_params: %v", ErrValidation, err)
		}
	}

	if err := s.registry.Validate(*key, params); err != nil {
		if errors.Is(err, actions.ErrUnknownAction) || errors.Is(err, actions.ErrInvalidActionParams) {
			return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, nil, err
	}
	if encoded == nil {
		return key, nil, nil
	}

	text := string(encoded)
	return key, &text, nil
}
