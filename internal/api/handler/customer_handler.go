package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/crmapi/crm-service/internal/api/metrics"
	"github.com/crmapi/crm-service/internal/core/domain"
	"github.com/crmapi/crm-service/internal/core/ports"
)

// CustomerHandler handles HTTP requests for customer operations.
type CustomerHandler struct {
	service ports.CustomerService
	log     zerolog.Logger
}

func NewCustomerHandler(service ports.CustomerService, log zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{service: service, log: log}
}

// List handles GET /customer.
//
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   customerResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /customer [get]
func (h *CustomerHandler) List(c echo.Context) error {
	customers, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCustomerResponses(customers))
}

// Get handles GET /customer/:id.
//
// @Summary      Get a customer by id
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Customer id"
// @Success      200  {object}  customerResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /customer/{id} [get]
func (h *CustomerHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	customer, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCustomerResponse(*customer))
}

// Filter handles GET /customer/filter.
//
// @Summary      Filter customers
// @Description  Every parameter is optional. Text parameters match case-insensitive substrings; name matches first or last name. registrationDate matches the calendar date exactly.
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        name              query     string  false  "First or last name contains"
// @Param        email             query     string  false  "Email contains"
// @Param        region            query     string  false  "Region contains"
// @Param        registrationDate  query     string  false  "Registration date (YYYY-MM-DD)"
// @Success      200               {array}   customerResponse
// @Failure      400               {object}  ErrorResponse
// @Failure      401               {object}  ErrorResponse
// @Failure      403               {object}  ErrorResponse
// @Router       /customer/filter [get]
func (h *CustomerHandler) Filter(c echo.Context) error {
	f := domain.CustomerFilter{
		Name:   c.QueryParam("name"),
		Email:  c.QueryParam("email"),
		Region: c.QueryParam("region"),
	}
	if raw := c.QueryParam("registrationDate"); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "registrationDate must be a date (YYYY-MM-DD)")
		}
		f.RegistrationDate = &d
	}

	customers, err := h.service.Filter(c.Request().Context(), f)
	if err != nil {
		return err
	}
	metrics.FilterResults.Observe(float64(len(customers)))
	return c.JSON(http.StatusOK, toCustomerResponses(customers))
}

// Create handles POST /customer.
//
// @Summary      Create a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      customerRequest  true  "Customer"
// @Success      201   {object}  customerResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Router       /customer [post]
func (h *CustomerHandler) Create(c echo.Context) error {
	req, err := bindCustomer(c)
	if err != nil {
		return err
	}

	created, err := h.service.Create(c.Request().Context(), req.toDomain())
	if err != nil {
		return err
	}

	h.audit(c, "create", created.ID)
	c.Response().Header().Set(echo.HeaderLocation, fmt.Sprintf("/customer/%d", created.ID))
	return c.JSON(http.StatusCreated, toCustomerResponse(*created))
}

// Update handles PUT /customer/:id.
//
// @Summary      Update a customer
// @Tags         customers
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  int              true  "Customer id"
// @Param        body  body  customerRequest  true  "Customer; id must match the path"
// @Success      204
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /customer/{id} [put]
func (h *CustomerHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	req, err := bindCustomer(c)
	if err != nil {
		return err
	}

	if err := h.service.Update(c.Request().Context(), id, req.toDomain()); err != nil {
		return err
	}

	h.audit(c, "update", id)
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /customer/:id.
//
// @Summary      Delete a customer
// @Tags         customers
// @Security     BearerAuth
// @Param        id   path  int  true  "Customer id"
// @Success      204
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /customer/{id} [delete]
func (h *CustomerHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}

	h.audit(c, "delete", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *CustomerHandler) audit(c echo.Context, op string, id int64) {
	metrics.CustomerMutationsTotal.WithLabelValues(op).Inc()
	h.log.Info().
		Str("actor", actor(c)).
		Str("operation", op).
		Int64("customer_id", id).
		Msg("customer mutation")
}

func bindCustomer(c echo.Context) (customerRequest, error) {
	var req customerRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return req, nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}
	return id, nil
}
