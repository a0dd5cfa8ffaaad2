package assets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanName(t *testing.T) {
	cases := map[string]struct {
		want string
		ok   bool
	}{
		"camiseta01.webp":        {"camiseta01.webp", true},
		"img/a.png":              {"img/a.png", true},
		"../secret":              {"secret", true},
		"":                       {"", false},
		"/":                      {"", false},
		"a/../../../etc/passwd":  {"etc/passwd", true},
	}
	for raw, tc := range cases {
		got, ok := CleanName(raw)
		assert.Equal(t, tc.ok, ok, raw)
		assert.Equal(t, tc.want, got, raw)
	}
}

func TestDirStore(t *testing.T) {
	fsys := fstest.MapFS{
		"camiseta01.webp": {Data: []byte("img"), ModTime: time.Unix(1700000000, 0)},
	}
	store := NewDirStore(fsys)

	obj, err := store.Get(context.Background(), "camiseta01.webp")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), obj.Body)
	assert.Equal(t, "image/webp", obj.ContentType)

	_, err = store.Get(context.Background(), "missing.webp")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandlerServesAndRejects(t *testing.T) {
	h := &Handler{Store: NewDirStore(fstest.MapFS{
		"camiseta2.webp": {Data: []byte("second")},
	})}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/camiseta2.webp", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "second", rec.Body.String())
	assert.Equal(t, "image/webp", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/nope.webp", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/assets/camiseta2.webp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (Object, error) {
	return Object{}, errors.New("bucket offline")
}

func TestHandlerBackendError(t *testing.T) {
	h := &Handler{Store: brokenStore{}}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/a.webp", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("other")))
}

type fakeS3 struct {
	mu       sync.Mutex
	requests []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/shop/assets/camiseta01.webp":
		w.Header().Set("Content-Type", "image/webp")
		_, _ = w.Write([]byte("from-bucket"))
	case r.Method == http.MethodGet:
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
	case r.Method == http.MethodPut:
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeS3Store(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
	})
	return NewS3Store("shop", "assets/", client), fake
}

func TestS3StoreGet(t *testing.T) {
	store, _ := newFakeS3Store(t)

	obj, err := store.Get(context.Background(), "camiseta01.webp")
	require.NoError(t, err)
	assert.Equal(t, "from-bucket", string(obj.Body))
	assert.Equal(t, "image/webp", obj.ContentType)

	_, err = store.Get(context.Background(), "missing.webp")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3StorePut(t *testing.T) {
	store, fake := newFakeS3Store(t)

	require.NoError(t, store.Put(context.Background(), "camiseta2.webp", []byte("bytes")))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.requests, "PUT /shop/assets/camiseta2.webp")
}
