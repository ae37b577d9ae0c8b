// internal/handlers/cache.go
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/invoice-backend/internal/utils"
)

// ListCache stores rendered listing pages per collection. It is optional; handlers fall
// through to the store when it is nil or failing.
//
// Get reports the collection version it looked at. A page loaded after a miss is stored
// under that version, so a write committed in between leaves it unreachable.
type ListCache interface {
	Get(ctx context.Context, collection, query string, dest interface{}) (hit bool, version int64, err error)
	Set(ctx context.Context, collection string, version int64, query string, value interface{}) error
}

// cachedList answers a listing request from cache when possible and from load otherwise.
func cachedList(c *gin.Context, cache ListCache, collection string, load func() (utils.PaginationResult, error)) {
	ctx := c.Request.Context()
	query := c.Request.URL.RawQuery

	var (
		version   int64
		cacheable bool
	)
	if cache != nil {
		var result utils.PaginationResult
		hit, v, err := cache.Get(ctx, collection, query, &result)
		if err != nil {
			logrus.WithError(err).WithField("collection", collection).Warn("Listing cache read failed")
		}
		if hit {
			utils.PaginatedResponse(c, result)
			return
		}
		version, cacheable = v, err == nil
	}

	result, err := load()
	if err != nil {
		respondError(c, err)
		return
	}

	if cacheable {
		if err := cache.Set(ctx, collection, version, query, result); err != nil {
			logrus.WithError(err).WithField("collection", collection).Warn("Listing cache write failed")
		}
	}
	utils.PaginatedResponse(c, result)
}
