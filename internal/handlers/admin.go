package handlers

import (
	"net/http"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/actions"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/middleware"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	registry *actions.Registry
	isAdmin  middleware.AdminPredicate
}

func NewAdminHandler(registry *actions.Registry, isAdmin middleware.AdminPredicate) *AdminHandler {
	return &AdminHandler{registry: registry, isAdmin: isAdmin}
}

func (h *AdminHandler) ListActions(c echo.Context) error {
	return respond(c, http.StatusOK, "actions", h.registry.List())
}

// Check reports whether the caller passes the admin predicate. Without a
// predicate nobody is reported as admin even though admin routes are open.
func (h *AdminHandler) Check(c echo.Context) error {
	if h.isAdmin == nil {
		return c.JSON(http.StatusOK, map[string]bool{"isAdmin": false})
	}

	admin, err := h.isAdmin(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"isAdmin": admin})
}
