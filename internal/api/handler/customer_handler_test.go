package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/crmapi/crm-service/internal/core/domain"
)

type stubCustomerService struct {
	listFn   func(ctx context.Context) ([]domain.Customer, error)
	getFn    func(ctx context.Context, id int64) (*domain.Customer, error)
	createFn func(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	updateFn func(ctx context.Context, id int64, c domain.Customer) error
	deleteFn func(ctx context.Context, id int64) error
	filterFn func(ctx context.Context, f domain.CustomerFilter) ([]domain.Customer, error)
}

func (s *stubCustomerService) List(ctx context.Context) ([]domain.Customer, error) {
	return s.listFn(ctx)
}

func (s *stubCustomerService) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.getFn(ctx, id)
}

func (s *stubCustomerService) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	return s.createFn(ctx, c)
}

func (s *stubCustomerService) Update(ctx context.Context, id int64, c domain.Customer) error {
	return s.updateFn(ctx, id, c)
}

func (s *stubCustomerService) Delete(ctx context.Context, id int64) error {
	return s.deleteFn(ctx, id)
}

func (s *stubCustomerService) Filter(ctx context.Context, f domain.CustomerFilter) ([]domain.Customer, error) {
	return s.filterFn(ctx, f)
}

var sampleCustomer = domain.Customer{
	ID:               7,
	FirstName:        "John",
	LastName:         "Doe",
	Email:            "john@acme.io",
	Region:           "North",
	RegistrationDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
}

const sampleBody = `{"id":7,"firstName":"John","lastName":"Doe","email":"john@acme.io","region":"North","registrationDate":"2024-03-05"}`

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func TestCustomerHandler_List(t *testing.T) {
	e := newTestEcho()
	h := NewCustomerHandler(&stubCustomerService{
		listFn: func(ctx context.Context) ([]domain.Customer, error) {
			return []domain.Customer{sampleCustomer}, nil
		},
	}, zerolog.Nop())

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/customer", nil), rec)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 1 || resp[0]["firstName"] != "John" || resp[0]["registrationDate"] != "2024-03-05" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestCustomerHandler_Get(t *testing.T) {
	e := newTestEcho()
	h := NewCustomerHandler(&stubCustomerService{
		getFn: func(ctx context.Context, id int64) (*domain.Customer, error) {
			if id != 7 {
				return nil, domain.ErrCustomerNotFound
			}
			c := sampleCustomer
			return &c, nil
		},
	}, zerolog.Nop())

	rec := httptest.NewRecorder()
	c := withID(e.NewContext(httptest.NewRequest(http.MethodGet, "/customer/7", nil), rec), "7")
	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c = withID(e.NewContext(httptest.NewRequest(http.MethodGet, "/customer/8", nil), httptest.NewRecorder()), "8")
	if err := h.Get(c); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}

	c = withID(e.NewContext(httptest.NewRequest(http.MethodGet, "/customer/abc", nil), httptest.NewRecorder()), "abc")
	if code := httpStatus(t, h.Get(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestCustomerHandler_Filter_ParsesQuery(t *testing.T) {
	e := newTestEcho()
	var got domain.CustomerFilter
	h := NewCustomerHandler(&stubCustomerService{
		filterFn: func(ctx context.Context, f domain.CustomerFilter) ([]domain.Customer, error) {
			got = f
			return []domain.Customer{}, nil
		},
	}, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/customer/filter?name=jo&region=nor&registrationDate=2024-03-05T13:45:00", nil)
	if err := h.Filter(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if got.Name != "jo" || got.Region != "nor" || got.Email != "" {
		t.Fatalf("unexpected filter: %+v", got)
	}
	if got.RegistrationDate == nil || !got.RegistrationDate.Equal(sampleCustomer.RegistrationDate) {
		t.Fatalf("unexpected date: %v", got.RegistrationDate)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty JSON array, got %q", body)
	}
}

func TestCustomerHandler_Filter_BadDate(t *testing.T) {
	e := newTestEcho()
	h := NewCustomerHandler(&stubCustomerService{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/customer/filter?registrationDate=yesterday", nil)
	if code := httpStatus(t, h.Filter(e.NewContext(req, httptest.NewRecorder()))); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestCustomerHandler_Create(t *testing.T) {
	e := newTestEcho()
	h := NewCustomerHandler(&stubCustomerService{
		createFn: func(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
			if c.FirstName != "John" || !c.RegistrationDate.Equal(sampleCustomer.RegistrationDate) {
				t.Fatalf("unexpected customer: %+v", c)
			}
			out := c
			out.ID = 11
			return &out, nil
		},
	}, zerolog.Nop())

	rec := httptest.NewRecorder()
	if err := h.Create(e.NewContext(jsonRequest(http.MethodPost, "/customer", sampleBody), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/customer/11" {
		t.Fatalf("unexpected location: %q", loc)
	}

	var resp customerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != 11 {
		t.Fatalf("expected id 11, got %d", resp.ID)
	}
}

func TestCustomerHandler_Create_Invalid(t *testing.T) {
	e := newTestEcho()
	h := NewCustomerHandler(&stubCustomerService{}, zerolog.Nop())

	body := `{"firstName":"","lastName":"Doe","email":"john@acme.io","region":"North","registrationDate":"2024-03-05"}`
	if code := httpStatus(t, h.Create(e.NewContext(jsonRequest(http.MethodPost, "/customer", body), httptest.NewRecorder()))); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestCustomerHandler_Update(t *testing.T) {
	e := newTestEcho()
	h := NewCustomerHandler(&stubCustomerService{
		updateFn: func(ctx context.Context, id int64, c domain.Customer) error {
			if id != c.ID {
				return domain.ErrIDMismatch
			}
			return nil
		},
	}, zerolog.Nop())

	rec := httptest.NewRecorder()
	c := withID(e.NewContext(jsonRequest(http.MethodPut, "/customer/7", sampleBody), rec), "7")
	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	c = withID(e.NewContext(jsonRequest(http.MethodPut, "/customer/5", sampleBody), httptest.NewRecorder()), "5")
	if err := h.Update(c); !errors.Is(err, domain.ErrIDMismatch) {
		t.Fatalf("expected ErrIDMismatch, got %v", err)
	}
}

func TestCustomerHandler_Delete(t *testing.T) {
	e := newTestEcho()
	h := NewCustomerHandler(&stubCustomerService{
		deleteFn: func(ctx context.Context, id int64) error {
			if id != 7 {
				return domain.ErrCustomerNotFound
			}
			return nil
		},
	}, zerolog.Nop())

	rec := httptest.NewRecorder()
	if err := h.Delete(withID(e.NewContext(httptest.NewRequest(http.MethodDelete, "/customer/7", nil), rec), "7")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	c := withID(e.NewContext(httptest.NewRequest(http.MethodDelete, "/customer/8", nil), httptest.NewRecorder()), "8")
	if err := h.Delete(c); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}
