package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/invoice-backend/internal/services"
	"github.com/javajoker/invoice-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryCache struct {
	pages    map[string][]byte
	versions map[string]int64
	gets     int
	sets     int
	fail     bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{pages: map[string][]byte{}, versions: map[string]int64{}}
}

func (m *memoryCache) key(collection string, version int64, query string) string {
	return fmt.Sprintf("%s:v%d?%s", collection, version, query)
}

func (m *memoryCache) invalidate(collection string) {
	m.versions[collection]++
}

func (m *memoryCache) Get(_ context.Context, collection, query string, dest interface{}) (bool, int64, error) {
	m.gets++
	if m.fail {
		return false, 0, errors.New("cache down")
	}
	version := m.versions[collection]
	raw, ok := m.pages[m.key(collection, version, query)]
	if !ok {
		return false, version, nil
	}
	return true, version, json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, collection string, version int64, query string, value interface{}) error {
	m.sets++
	if m.fail {
		return errors.New("cache down")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.pages[m.key(collection, version, query)] = raw
	return nil
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&services.Error{Kind: services.KindValidation, Message: "bad"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{&services.Error{Kind: services.KindUnauthorized, Message: "who"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{&services.Error{Kind: services.KindNotFound, Message: "gone"}, http.StatusNotFound, "NOT_FOUND"},
		{&services.Error{Kind: services.KindDuplicate, Message: "twice"}, http.StatusConflict, "DUPLICATE"},
		{&services.Error{Kind: services.KindConflict, Message: "in use"}, http.StatusConflict, "CONFLICT"},
		{&services.Error{Kind: services.KindLocked, Message: "wait"}, http.StatusTooManyRequests, "LOCKED"},
		{errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)

		var resp utils.APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, tc.status, w.Code, tc.code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, tc.code, resp.Error.Code)
		assert.NotContains(t, resp.Error.Message, "connection reset")
	}
}

func TestCachedListServesSecondRequestFromCache(t *testing.T) {
	cache := newMemoryCache()
	loads := 0

	r := gin.New()
	r.GET("/items", func(c *gin.Context) {
		cachedList(c, cache, services.CollectionProducts, func() (utils.PaginationResult, error) {
			loads++
			return utils.CreatePaginationResult([]string{"a", "b"}, 2, utils.PaginationParams{Page: 1, Limit: 10}), nil
		})
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items?page=1", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-Total-Count"))
	}

	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, cache.sets)
}

func TestCachedListFallsThroughWhenCacheFails(t *testing.T) {
	cache := newMemoryCache()
	cache.fail = true
	loads := 0

	r := gin.New()
	r.GET("/items", func(c *gin.Context) {
		cachedList(c, cache, services.CollectionProducts, func() (utils.PaginationResult, error) {
			loads++
			return utils.CreatePaginationResult([]string{}, 0, utils.PaginationParams{Page: 1, Limit: 10}), nil
		})
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 2, loads)
	assert.Zero(t, cache.sets)
}

func TestCachedListWriteDuringLoadIsNotServedLater(t *testing.T) {
	cache := newMemoryCache()
	total := int64(1)

	r := gin.New()
	r.GET("/items", func(c *gin.Context) {
		cachedList(c, cache, services.CollectionInvoices, func() (utils.PaginationResult, error) {
			rows := total
			if rows == 1 {
				// An invoice is submitted after these rows were read.
				total = 2
				cache.invalidate(services.CollectionInvoices)
			}
			return utils.CreatePaginationResult([]string{}, rows, utils.PaginationParams{Page: 1, Limit: 10}), nil
		})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items", nil))
	assert.Equal(t, "1", w.Header().Get("X-Total-Count"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items", nil))
	assert.Equal(t, "2", w.Header().Get("X-Total-Count"))
}

func TestCachedListDoesNotCacheErrors(t *testing.T) {
	cache := newMemoryCache()

	r := gin.New()
	r.GET("/items", func(c *gin.Context) {
		cachedList(c, cache, services.CollectionProducts, func() (utils.PaginationResult, error) {
			return utils.PaginationResult{}, &services.Error{Kind: services.KindValidation, Message: "bad sort"}
		})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, cache.sets)
}
