package handlers

import (
	"log/slog"
	"strconv"

	"storekode/internal/metrics"
	"storekode/internal/middleware"
	"storekode/internal/models"
	"storekode/internal/services"

	"github.com/gofiber/fiber/v2"
)

// StoreHandler handles HTTP requests for stores.
type StoreHandler struct {
	service *services.StoreService
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewStoreHandler creates a new StoreHandler.
func NewStoreHandler(service *services.StoreService, m *metrics.Metrics, logger *slog.Logger) *StoreHandler {
	return &StoreHandler{
		service: service,
		metrics: m,
		logger:  logger.With("component", "store_handler"),
	}
}

// RegisterRoutes registers the store routes behind gate, which must include the
// authentication middleware. The identity check always runs last.
func (h *StoreHandler) RegisterRoutes(router fiber.Router, gate ...fiber.Handler) {
	chain := make([]fiber.Handler, 0, len(gate)+1)
	chain = append(chain, gate...)
	chain = append(chain, middleware.RequireIdentity())
	storeRoutes := router.Group("/stores", chain...)
	storeRoutes.Post("/", h.HandleCreateStore)
	storeRoutes.Get("/", h.HandleListStores)
	storeRoutes.Get("/:id", h.HandleGetStore)
	storeRoutes.Patch("/:id", h.HandleUpdateStore)
	storeRoutes.Delete("/:id", h.HandleDeleteStore)
}

// HandleCreateStore creates a store owned by the caller.
func (h *StoreHandler) HandleCreateStore(c *fiber.Ctx) error {
	owner, err := callerID(c)
	if err != nil {
		return writeError(c, h.logger, "create store", err)
	}

	var req services.StoreInput
	if err := c.BodyParser(&req); err != nil {
		return message(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	store, err := h.service.Create(c.UserContext(), owner, req)
	if err != nil {
		return writeError(c, h.logger, "create store", err)
	}
	h.count("create")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Store created successfully",
		"store":   store,
	})
}

// HandleListStores lists the caller's stores. Optional query filters: city, state,
// active (true|false).
func (h *StoreHandler) HandleListStores(c *fiber.Ctx) error {
	owner, err := callerID(c)
	if err != nil {
		return writeError(c, h.logger, "list stores", err)
	}

	filter, err := parseStoreFilter(c)
	if err != nil {
		return writeError(c, h.logger, "list stores", err)
	}

	stores, err := h.service.List(c.UserContext(), owner, filter)
	if err != nil {
		return writeError(c, h.logger, "list stores", err)
	}

	return c.JSON(fiber.Map{
		"message": "Stores retrieved successfully",
		"count":   len(stores),
		"stores":  stores,
	})
}

// HandleGetStore retrieves a single store owned by the caller.
func (h *StoreHandler) HandleGetStore(c *fiber.Ctx) error {
	owner, err := callerID(c)
	if err != nil {
		return writeError(c, h.logger, "get store", err)
	}

	store, err := h.service.GetByID(c.UserContext(), owner, c.Params("id"))
	if err != nil {
		return writeError(c, h.logger, "get store", err)
	}

	return c.JSON(fiber.Map{
		"message": "Store retrieved successfully",
		"store":   store,
	})
}

// HandleUpdateStore patches a store owned by the caller.
func (h *StoreHandler) HandleUpdateStore(c *fiber.Ctx) error {
	owner, err := callerID(c)
	if err != nil {
		return writeError(c, h.logger, "update store", err)
	}

	var patch services.StorePatch
	if err := c.BodyParser(&patch); err != nil {
		return message(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	store, err := h.service.Update(c.UserContext(), owner, c.Params("id"), patch)
	if err != nil {
		return writeError(c, h.logger, "update store", err)
	}
	h.count("update")

	return c.JSON(fiber.Map{
		"message": "Store updated successfully",
		"store":   store,
	})
}

// HandleDeleteStore soft-deletes a store owned by the caller.
func (h *StoreHandler) HandleDeleteStore(c *fiber.Ctx) error {
	owner, err := callerID(c)
	if err != nil {
		return writeError(c, h.logger, "delete store", err)
	}

	store, err := h.service.SoftDelete(c.UserContext(), owner, c.Params("id"))
	if err != nil {
		return writeError(c, h.logger, "delete store", err)
	}
	h.count("deactivate")

	return c.JSON(fiber.Map{
		"message": "Store soft deleted successfully",
		"store":   store,
	})
}

func (h *StoreHandler) count(operation string) {
	if h.metrics != nil {
		h.metrics.StoreMutationsTotal.WithLabelValues(operation).Inc()
	}
}

// callerID returns the authenticated user id threaded in by the gate.
func callerID(c *fiber.Ctx) (string, error) {
	identity, ok := middleware.IdentityFrom(c.UserContext())
	if !ok {
		return "", services.ErrForbidden
	}
	return identity.ID, nil
}

func parseStoreFilter(c *fiber.Ctx) (models.StoreFilter, error) {
	var filter models.StoreFilter
	if city := c.Query("city"); city != "" {
		filter.City = &city
	}
	if state := c.Query("state"); state != "" {
		filter.State = &state
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, &services.ValidationError{Fields: map[string]string{
				"active": "active must be true or false",
			}}
		}
		filter.Active = &active
	}
	return filter, nil
}
