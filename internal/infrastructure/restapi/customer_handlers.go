package restapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"collateral_monitor/internal/app/port"
	"collateral_monitor/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// CustomerListResponse is the body of GET /customers.
type CustomerListResponse struct {
	Customers []entity.CustomerView `json:"customers"`
	Count     int                   `json:"count"`
	Total     int                   `json:"total"`
	Source    string                `json:"source"`
	Timestamp time.Time             `json:"timestamp"`
	Error     string                `json:"error,omitempty"`
	Details   string                `json:"details,omitempty"`
}

// CustomerResponse wraps a single customer.
type CustomerResponse struct {
	Customer *entity.CustomerView `json:"customer"`
}

// PatchCustomerRequest is the body of PATCH /customers/:id. Absent fields are
// left untouched.
type PatchCustomerRequest struct {
	Name      *string  `json:"name"`
	Tag       *string  `json:"tag"`
	Email     *string  `json:"email"`
	BTCWallet *string  `json:"btcWallet"`
	Chains    []string `json:"chains"`
	Protocols []string `json:"protocols"`
}

// CustomerHandler serves the customer endpoints.
type CustomerHandler struct {
	customerService port.CustomerService
	repo            port.CustomerRepository
	logger          port.Logger
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(cs port.CustomerService, repo port.CustomerRepository, l port.Logger) *CustomerHandler {
	return &CustomerHandler{
		customerService: cs,
		repo:            repo,
		logger:          l,
	}
}

// ListCustomersHandler builds the live customer list. It always answers 200;
// a store failure yields an empty list with the diagnostic attached.
func (h *CustomerHandler) ListCustomersHandler(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))

	list, err := h.customerService.ListCustomers(c.Request.Context(), refresh)
	if err != nil {
		h.logger.Error("Failed to build customer list", "error", err)
		c.JSON(http.StatusOK, CustomerListResponse{
			Customers: []entity.CustomerView{},
			Source:    entity.SourceDatabase,
			Timestamp: time.Now().UTC(),
			Error:     "failed to load customers",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, CustomerListResponse{
		Customers: list.Customers,
		Count:     list.Count,
		Total:     list.Total,
		Source:    list.Source,
		Timestamp: list.Timestamp,
	})
}

// CreateCustomerHandler registers a new customer.
func (h *CustomerHandler) CreateCustomerHandler(c *gin.Context) {
	var req entity.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}

	view, err := h.customerService.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "Failed to create customer", err)
		return
	}
	c.JSON(http.StatusCreated, CustomerResponse{Customer: view})
}

// GetCustomerHandler returns the persisted state of one customer.
func (h *CustomerHandler) GetCustomerHandler(c *gin.Context) {
	view, err := h.customerService.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to get customer", err)
		return
	}
	c.JSON(http.StatusOK, CustomerResponse{Customer: view})
}

// UpdateCustomerHandler applies a field-level update.
func (h *CustomerHandler) UpdateCustomerHandler(c *gin.Context) {
	var req PatchCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}

	view, err := h.customerService.UpdateCustomer(c.Request.Context(), c.Param("id"), entity.CustomerPatch{
		Name:      req.Name,
		Tag:       req.Tag,
		Email:     req.Email,
		BTCWallet: req.BTCWallet,
		Chains:    req.Chains,
		Protocols: req.Protocols,
	})
	if err != nil {
		h.respondError(c, "Failed to update customer", err)
		return
	}
	c.JSON(http.StatusOK, CustomerResponse{Customer: view})
}

// DeleteCustomerHandler removes a customer.
func (h *CustomerHandler) DeleteCustomerHandler(c *gin.Context) {
	if err := h.customerService.DeleteCustomer(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, "Failed to delete customer", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RefreshCustomerHandler forces a live refresh of one customer.
func (h *CustomerHandler) RefreshCustomerHandler(c *gin.Context) {
	view, err := h.customerService.RefreshCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to refresh customer", err)
		return
	}
	c.JSON(http.StatusOK, CustomerResponse{Customer: view})
}

// HealthHandler reports whether the customer store is reachable.
func (h *CustomerHandler) HealthHandler(c *gin.Context) {
	if err := h.repo.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *CustomerHandler) respondError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, entity.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, entity.ErrCustomerExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "customer with this wallet address already exists", Details: err.Error()})
	case errors.Is(err, entity.ErrCustomerNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "customer not found"})
	default:
		h.logger.Error(msg, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Details: err.Error()})
	}
}
