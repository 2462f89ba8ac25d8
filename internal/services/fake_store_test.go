package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/models"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/store"
)

// memStore is an in-memory CatalogStore and OrderStore.
type memStore struct {
	mu         sync.Mutex
	products   map[uint]*models.Product
	categories map[uint]*models.Category
	orders     []models.Order
	items      []models.OrderItem
	nextID     uint
	recordErr  error
}

func newMemStore() *memStore {
	return &memStore{
		products:   map[uint]*models.Product{},
		categories: map[uint]*models.Category{},
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) addProduct(p models.Product) *models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	s.products[p.ID] = &p
	return &p
}

func (s *memStore) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	if cp.CategoryID != nil {
		if c, ok := s.categories[*cp.CategoryID]; ok {
			name := c.Name
			cp.CategoryName = &name
		}
	}
	return &cp, nil
}

func (s *memStore) ListActiveProducts(ctx context.Context, category string) ([]models.Product, error) {
	s.mu.Lock()
	ids := make([]uint, 0, len(s.products))
	for id, p := range s.products {
		if p.Active {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		p, _ := s.GetProduct(ctx, id)
		if category != "" && (p.CategoryName == nil || *p.CategoryName != category) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) CreateProduct(ctx context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *memStore) UpdateProduct(ctx context.Context, id uint, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	// Round-trip through JSON column names to apply the update map.
	raw, _ := json.Marshal(p)
	fields := map[string]any{}
	_ = json.Unmarshal(raw, &fields)
	for k, v := range updates {
		fields[k] = v
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	var updated models.Product
	if err := json.Unmarshal(raw, &updated); err != nil {
		return err
	}
	s.products[id] = &updated
	return nil
}

func (s *memStore) DeleteProduct(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *memStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) CreateCategory(ctx context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.Name == c.Name {
			return errors.New("duplicate category name")
		}
	}
	c.ID = s.id()
	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

func (s *memStore) UpdateCategory(ctx context.Context, id uint, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return store.ErrNotFound
	}
	if v, ok := updates["name"].(string); ok {
		c.Name = v
	}
	if v, ok := updates["description"].(string); ok {
		c.Description = &v
	}
	if v, ok := updates["parent_id"].(uint); ok {
		c.ParentID = &v
	}
	return nil
}

func (s *memStore) DeleteCategory(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.categories, id)
	for _, c := range s.categories {
		if c.ParentID != nil && *c.ParentID == id {
			c.ParentID = nil
		}
	}
	for _, p := range s.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
		}
	}
	return nil
}

func (s *memStore) RecordOrder(ctx context.Context, order *models.Order, item *models.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return s.recordErr
	}
	order.ID = s.id()
	item.ID = s.id()
	item.OrderID = order.ID
	s.orders = append(s.orders, *order)
	s.items = append(s.items, *item)
	return nil
}

func (s *memStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, 0, len(s.orders))
	for i := len(s.orders) - 1; i >= 0; i-- {
		o := s.orders[i]
		for _, item := range s.items {
			if item.OrderID == o.ID {
				o.Items = append(o.Items, item)
			}
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *memStore) counts() (orders, items int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders), len(s.items)
}
