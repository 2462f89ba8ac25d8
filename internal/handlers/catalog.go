package handlers

import (
	"net/http"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/services"

	"github.com/labstack/echo/v4"
)

type CatalogHandler struct {
	catalog *services.CatalogService
}

func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) ListProducts(c echo.Context) error {
	products, err := h.catalog.ListActiveProducts(c.Request().Context(), c.Param("category"))
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "products", products)
}

func (h *CatalogHandler) GetProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	product, err := h.catalog.GetProduct(c.Request().Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "product", product)
}

func (h *CatalogHandler) CreateProduct(c echo.Context) error {
	var input services.ProductInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	product, err := h.catalog.CreateProduct(c.Request().Context(), input)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusCreated, "product", product)
}

func (h *CatalogHandler) UpdateProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var input services.ProductInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	product, err := h.catalog.UpdateProduct(c.Request().Context(), id, input)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "product", product)
}

func (h *CatalogHandler) DeleteProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.catalog.DeleteProduct(c.Request().Context(), id); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "success", true)
}

func (h *CatalogHandler) ListCategories(c echo.Context) error {
	categories, err := h.catalog.ListCategories(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "categories", categories)
}

func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	var input services.CategoryInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	category, err := h.catalog.CreateCategory(c.Request().Context(), input)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusCreated, "category", category)
}

func (h *CatalogHandler) UpdateCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var input services.CategoryInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	category, err := h.catalog.UpdateCategory(c.Request().Context(), id, input)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "category", category)
}

func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.catalog.DeleteCategory(c.Request().Context(), id); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "success", true)
}

func (h *CatalogHandler) ListOrders(c echo.Context) error {
	orders, err := h.catalog.ListOrders(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "orders", orders)
}
