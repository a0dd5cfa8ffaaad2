package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/52poke/vitrine/internal/cache"
	"github.com/52poke/vitrine/internal/cep"
	"github.com/52poke/vitrine/internal/lang"
	"github.com/52poke/vitrine/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testEnv struct {
	server   *httptest.Server
	client   *http.Client
	backend  *cache.MemoryBackend
	viacep   *httptest.Server
	lookups  *atomic.Int32
	sessions *session.Registry
	clock    *testClock
}

// testClock is shared by the test and the server goroutines.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, lang.Register())

	lookups := &atomic.Int32{}
	viacep := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lookups.Add(1)
		switch r.URL.Path {
		case "/ws/01001000/json/":
			_, _ = w.Write([]byte(`{"logradouro":"Praça da Sé","bairro":"Sé","localidade":"São Paulo","uf":"SP"}`))
		case "/ws/99999999/json/":
			_, _ = w.Write([]byte(`{"erro":true}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(viacep.Close)

	clock := &testClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	backend := cache.NewMemoryBackend()
	store := cache.NewStore(backend, cache.WithClock(clock.Now))
	sessions := session.NewRegistry("vitrine_session", cep.NewClient(viacep.URL+"/ws", time.Second), nil)
	h := NewHandler(store, sessions, nil, nil)

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{
		server:   server,
		client:   client,
		backend:  backend,
		viacep:   viacep,
		lookups:  lookups,
		sessions: sessions,
		clock:    clock,
	}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) fetchAddress() (addressResponse, error) {
	var out addressResponse
	resp, err := e.client.Get(e.server.URL + "/api/address")
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	err = json.NewDecoder(resp.Body).Decode(&out)
	return out, err
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := e.client.PostForm(e.server.URL+path, form)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestPageRendersDemoProduct(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "Camiseta Estampada")
	assert.Contains(t, body, "R$79.99")
	assert.Contains(t, body, `<img class="w-full h-auto mb-4" src="/assets/camiseta01.webp"`)
	assert.Contains(t, body, "Selecione o Tamanho")
}

func TestCookielessReadsCreateNoSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/", "/?image=/assets/camiseta3.webp", "/api/address", "/api/product"} {
		resp, _ := env.get(t, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Empty(t, resp.Cookies(), path)
	}
	assert.Zero(t, env.sessions.Len())
	assert.Zero(t, env.backend.Len())
	assert.Empty(t, sessionIDs(env))
}

func TestFirstStoringRequestCreatesSession(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/")

	resp := env.postForm(t, "/selection", url.Values{"size": {"M"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Len(t, resp.Cookies(), 1)
	assert.Equal(t, 1, env.sessions.Len())

	env.get(t, "/")
	env.postForm(t, "/cep", url.Values{"cep": {"0100"}})
	assert.Equal(t, 1, env.sessions.Len())
	assert.Len(t, sessionIDs(env), 1)
}

func TestRejectedPostsCreateNoSession(t *testing.T) {
	env := newTestEnv(t)

	env.postForm(t, "/selection", url.Values{"size": {"XXL"}})
	resp, err := env.client.Post(env.server.URL+"/api/address", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Zero(t, env.sessions.Len())
}

func TestPageLoadRenewsSelectionExpiry(t *testing.T) {
	env := newTestEnv(t)
	env.postForm(t, "/selection", url.Values{"size": {"GG"}})

	env.clock.Advance(10 * time.Minute)
	_, body := env.get(t, "/")
	assert.Contains(t, body, `<option value="GG" selected>GG</option>`)

	env.clock.Advance(10 * time.Minute)
	_, body = env.get(t, "/")
	assert.Contains(t, body, `<option value="GG" selected>GG</option>`)

	env.clock.Advance(16 * time.Minute)
	_, body = env.get(t, "/")
	assert.NotContains(t, body, `selected>GG`)
}

func TestPageLoadPersistsDefaultSelection(t *testing.T) {
	env := newTestEnv(t)
	env.postForm(t, "/selection", url.Values{"size": {"P"}})

	env.get(t, "/")

	snap := snapshotBackend(t, env)
	id := onlySessionID(t, env)
	assert.Equal(t, `""`, snap[id+":"+KeySelectedColor])
	want := strconv.FormatInt(env.clock.Now().Add(cache.DefaultTTL).UnixMilli(), 10)
	assert.Equal(t, want, snap[cache.ExpirationKey(id+":"+KeySelectedColor)])
}

func TestProductAPIRenewsSelectionExpiry(t *testing.T) {
	env := newTestEnv(t)
	env.postForm(t, "/selection", url.Values{"color": {"Azul"}})

	for range 3 {
		env.clock.Advance(10 * time.Minute)
		_, body := env.get(t, "/api/product")
		var product productResponse
		require.NoError(t, json.Unmarshal([]byte(body), &product))
		assert.Equal(t, "Azul", product.SelectedColor)
	}
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := NewHandler(cache.NewStore(cache.NewMemoryBackend()), nil, nil, zap.New(core))

	rec := httptest.NewRecorder()
	h.writeJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusOK, rec.Code)
	entries := logs.FilterMessage("json response not written").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
}

func TestPageLocalizesFromAcceptLanguage(t *testing.T) {
	env := newTestEnv(t)
	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "en-US")

	resp, err := env.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Choose a size")
	assert.Contains(t, string(body), `<html lang="en">`)
}

func TestSelectionPersistsAcrossReloads(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/")

	resp := env.postForm(t, "/selection", url.Values{"size": {"GG"}, "color": {"Vermelho"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := env.get(t, "/")
	assert.Contains(t, body, `<option value="GG" selected>GG</option>`)
	assert.Contains(t, body, `<option value="Vermelho" selected>Vermelho</option>`)

	_, body = env.get(t, "/api/product")
	var product productResponse
	require.NoError(t, json.Unmarshal([]byte(body), &product))
	assert.Equal(t, "GG", product.SelectedSize)
	assert.Equal(t, "Vermelho", product.SelectedColor)
}

func TestSelectionRejectsUnknownVariant(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postForm(t, "/selection", url.Values{"size": {"XXL"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, env.backend.Len())
}

func TestSelectionSizeOnlyLeavesColor(t *testing.T) {
	env := newTestEnv(t)
	env.postForm(t, "/selection", url.Values{"color": {"Azul"}})
	env.postForm(t, "/selection", url.Values{"size": {"P"}})

	_, body := env.get(t, "/")
	assert.Contains(t, body, `<option value="Azul" selected>Azul</option>`)
	assert.Contains(t, body, `<option value="P" selected>P</option>`)
}

func TestSelectingImageDoesNotTouchSelections(t *testing.T) {
	env := newTestEnv(t)
	env.postForm(t, "/selection", url.Values{"size": {"M"}, "color": {"Preto"}})
	before := snapshotBackend(t, env)
	beforeLen := env.backend.Len()

	_, body := env.get(t, "/?image=/assets/camiseta3.webp")

	assert.Contains(t, body, `<img class="w-full h-auto mb-4" src="/assets/camiseta3.webp"`)
	assert.Contains(t, body, `<option value="M" selected>M</option>`)
	assert.Contains(t, body, `<option value="Preto" selected>Preto</option>`)
	assert.Len(t, before, 4)
	assert.Equal(t, before, snapshotBackend(t, env))
	assert.Equal(t, beforeLen, env.backend.Len())
}

func snapshotBackend(t *testing.T, env *testEnv) map[string]string {
	t.Helper()
	out := map[string]string{}
	for id := range sessionIDs(env) {
		for _, name := range []string{KeySelectedSize, KeySelectedColor} {
			for _, key := range []string{id + ":" + name, cache.ExpirationKey(id + ":" + name)} {
				v, err := env.backend.Get(t.Context(), key)
				if errors.Is(err, cache.ErrNotFound) {
					continue
				}
				require.NoError(t, err)
				out[key] = v
			}
		}
	}
	return out
}

func sessionIDs(env *testEnv) map[string]struct{} {
	u, _ := url.Parse(env.server.URL)
	ids := map[string]struct{}{}
	for _, c := range env.client.Jar.Cookies(u) {
		if c.Name == "vitrine_session" {
			ids[c.Value] = struct{}{}
		}
	}
	return ids
}

func onlySessionID(t *testing.T, env *testEnv) string {
	t.Helper()
	ids := sessionIDs(env)
	require.Len(t, ids, 1)
	for id := range ids {
		return id
	}
	return ""
}

func TestUnknownImageFallsBackToDefault(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.get(t, "/?image=/assets/camiseta4.webp")
	assert.Contains(t, body, `<img class="w-full h-auto mb-4" src="/assets/camiseta01.webp"`)
}

func TestCEPFormResolvesAddress(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postForm(t, "/cep", url.Values{"cep": {"01001000"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := env.get(t, "/")
	assert.Contains(t, body, "Praça da Sé, Sé, São Paulo - SP")
	assert.Contains(t, body, `value="01001000"`)
}

func TestCEPFormIgnoresShortCode(t *testing.T) {
	env := newTestEnv(t)

	env.postForm(t, "/cep", url.Values{"cep": {"0100"}})

	assert.Zero(t, env.lookups.Load())
	_, body := env.get(t, "/api/address")
	var got addressResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, addressResponse{CEP: "0100"}, got)
}

func TestAddressAPI(t *testing.T) {
	cases := []struct {
		code    string
		address string
		err     *string
	}{
		{"01001000", "Praça da Sé, Sé, São Paulo - SP", nil},
		{"99999999", "CEP não encontrado", nil},
		{"abcdefgh", "Erro ao consultar o CEP", ptr("Erro ao consultar o CEP")},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			env := newTestEnv(t)

			resp, err := env.client.Post(env.server.URL+"/api/address", "application/json",
				strings.NewReader(`{"cep":"`+tc.code+`"}`))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusAccepted, resp.StatusCode)

			var got addressResponse
			assert.Eventually(t, func() bool {
				res, err := env.fetchAddress()
				if err != nil {
					return false
				}
				got = res
				return !got.Loading
			}, 2*time.Second, 10*time.Millisecond)
			assert.Equal(t, tc.code, got.CEP)
			assert.Equal(t, tc.address, got.Address)
			assert.Equal(t, tc.err, got.Error)
		})
	}
}

func TestAddressAPIIgnoredCode(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.client.Post(env.server.URL+"/api/address", "application/json", strings.NewReader(`{"cep":"123"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, env.lookups.Load())

	resp, err = env.client.Post(env.server.URL+"/api/address", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	h := NewHandler(cache.NewStore(cache.NewMemoryBackend()), env.sessions, nil, nil)
	h.Ready = func(context.Context) error { return errors.New("redis down") }
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownPathIs404(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func ptr(s string) *string { return &s }
