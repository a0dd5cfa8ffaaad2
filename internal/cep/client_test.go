package cep

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

func TestClientFetchFound(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cep":"01001-000","logradouro":"Praça da Sé","bairro":"Sé","localidade":"São Paulo","uf":"SP"}`))
	}))
	defer srv.Close()

	addr, err := NewClient(srv.URL+"/ws/", time.Second).Fetch(context.Background(), "01001000")
	require.NoError(t, err)
	assert.Equal(t, "/ws/01001000/json/", gotPath)
	assert.False(t, bool(addr.NotFound))
	assert.Equal(t, "Praça da Sé, Sé, São Paulo - SP", FormatAddress(addr))
}

func TestClientFetchNotFoundFlag(t *testing.T) {
	for name, body := range map[string]string{
		"bool":   `{"erro": true}`,
		"string": `{"erro": "true"}`,
		"null":   `null`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			addr, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), "99999999")
			require.NoError(t, err)
			assert.True(t, bool(addr.NotFound))
		})
	}
}

func TestNotFoundIgnoresOtherTruthyValues(t *testing.T) {
	for _, raw := range []string{`{"erro": 1}`, `{"erro": "yes"}`, `{"erro": "TRUE"}`, `{"erro": false}`, `{}`} {
		var addr Address
		require.NoError(t, json.Unmarshal([]byte(raw), &addr), raw)
		assert.False(t, bool(addr.NotFound), raw)
	}
}

func TestClientFetchFailures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()
		_, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), "abcdefgh")
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}))
		defer srv.Close()
		_, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), "01001000")
		assert.Error(t, err)
	})

	t.Run("network", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		_, err := NewClient(url, time.Second).Fetch(context.Background(), "01001000")
		assert.Error(t, err)
	})
}

func TestNewClientDefaultsBaseURL(t *testing.T) {
	c := NewClient("", time.Second)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}
