package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"traffic-count-api/services"
)

type exportCache struct {
	CSV string `json:"csv"`
}

// DownloadHandler serves the grouped CSV export at /download.csv. The
// body is byte-exact: fixed header, one row per (day, location) bucket,
// sorted by day then location id.
type DownloadHandler struct {
	auth    *services.AuthService
	reports *services.ReportService
	cache   *services.CacheService
}

func NewDownloadHandler(auth *services.AuthService, reports *services.ReportService, cache *services.CacheService) *DownloadHandler {
	return &DownloadHandler{auth: auth, reports: reports, cache: cache}
}

func (h *DownloadHandler) Download(c *gin.Context) {
	user, _ := c.Cookie(userCookie)
	magic, _ := c.Cookie(magicCookie)
	if h.auth.Validate(user, magic) == 0 {
		// A file download, not the SPA: no redirect, just an empty body.
		c.Data(http.StatusOK, "text/csv", nil)
		return
	}

	var cached exportCache
	if err := h.cache.Get(c.Request.Context(), exportCacheKey, &cached); err == nil && cached.CSV != "" {
		c.Data(http.StatusOK, "text/csv", []byte(cached.CSV))
		return
	}

	csv, err := h.reports.ExportCSV()
	if err != nil {
		c.String(http.StatusInternalServerError, "export failed")
		return
	}
	go h.cache.Set(context.Background(), exportCacheKey, exportCache{CSV: csv}, 10*time.Second)

	c.Data(http.StatusOK, "text/csv", []byte(csv))
}
