package crmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodToken = "tok-123"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid username or password."}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": goodToken})
	})

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+goodToken {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid token"}`))
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("GET /customer/filter", authed(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("name") != "jo" || q.Get("registrationDate") != "2024-03-05" || q.Has("email") {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[{"id":1,"firstName":"John","registrationDate":"2024-03-05"}]`))
	}))
	mux.HandleFunc("GET /customer/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"customer not found"}`))
	}))
	mux.HandleFunc("DELETE /customer/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_LoginStoresSession(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL + "/")
	c.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	require.Nil(t, c.Session())

	s, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, goodToken, s.Token)
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, c.now(), s.AcquiredAt)
	assert.Equal(t, s, c.Session())

	c.Logout()
	assert.Nil(t, c.Session())
}

func TestClient_LoginFailure(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL)

	_, err := c.Login(context.Background(), "alice", "bad")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Contains(t, err.Error(), "Invalid username or password.")
	assert.Nil(t, c.Session())
}

func TestClient_RequiresSession(t *testing.T) {
	c := New("http://127.0.0.1:0")

	_, err := c.ListCustomers(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestClient_FilterAndErrors(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL)
	ctx := context.Background()
	_, err := c.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	got, err := c.FilterCustomers(ctx, Filter{
		Name:             "jo",
		RegistrationDate: time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "John", got[0].FirstName)

	_, err = c.GetCustomer(ctx, 42)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.NotNil(t, c.Session(), "a 404 keeps the session")

	require.NoError(t, c.DeleteCustomer(ctx, 1))
}

func TestClient_UnauthorizedClearsSession(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL)
	ctx := context.Background()
	_, err := c.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	c.mu.Lock()
	c.session.Token = "expired"
	c.mu.Unlock()

	err = c.DeleteCustomer(ctx, 1)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Nil(t, c.Session())

	_, err = c.ListCustomers(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}
