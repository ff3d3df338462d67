// Package httpapi implements the thin HTTP compatibility layer over
// internal/shortener: handlers parse the request, call the service
// (one method each, except Redirect, which calls Resolve and then
// PublishHit), and format the response. All business logic lives
// in internal/shortener; nothing here touches the cache, queue, or
// store directly.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/theakinwande/shortlink/internal/model"
	"github.com/theakinwande/shortlink/internal/shortener"
)

// URLHandler exposes the shortener service over HTTP.
type URLHandler struct {
	service *shortener.Service
}

// NewURLHandler builds a URLHandler.
func NewURLHandler(service *shortener.Service) *URLHandler {
	return &URLHandler{service: service}
}

type createRequest struct {
	URL string `json:"long_url" binding:"required"`
}

type createResponse struct {
	ID        int64  `json:"id"`
	ShortCode string `json:"short_code"`
	ShortURL  string `json:"short_url"`
	LongURL   string `json:"long_url"`
}

// Create handles POST /api/v1/urls/.
func (h *URLHandler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.service.Create(c.Request.Context(), req.URL)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createResponse{
		ID:        result.ID,
		ShortCode: result.ShortCode,
		ShortURL:  result.ShortURL,
		LongURL:   result.LongURL,
	})
}

// Redirect handles GET /:shortCode, the hot redirect path.
func (h *URLHandler) Redirect(c *gin.Context) {
	code := c.Param("shortCode")

	longURL, err := h.service.Resolve(c.Request.Context(), code)
	if err != nil {
		h.handleError(c, err)
		return
	}

	event := model.HitEvent{
		ShortCode: code,
		Timestamp: time.Now().UTC(),
	}
	if ua := c.Request.UserAgent(); ua != "" {
		event.UserAgent = &ua
	}
	if ref := c.Request.Referer(); ref != "" {
		event.Referer = &ref
	}
	if ip := c.ClientIP(); ip != "" {
		event.IPAddress = &ip
	}
	h.service.PublishHit(c.Request.Context(), event)

	c.Redirect(http.StatusFound, longURL)
}

type referrerCountResponse struct {
	Referer string `json:"referer"`
	Count   int64  `json:"count"`
}

type dailyCountResponse struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type statsResponse struct {
	TotalHits    int64                   `json:"total_hits"`
	ByDevice     map[string]int64        `json:"by_device"`
	ByBrowser    map[string]int64        `json:"by_browser"`
	ByCountry    map[string]int64        `json:"by_country"`
	TopReferers  []referrerCountResponse `json:"top_referers"`
	HitsOverTime []dailyCountResponse    `json:"hits_over_time"`
}

type urlResponse struct {
	ID        int64  `json:"id"`
	LongURL   string `json:"long_url"`
	ShortCode string `json:"short_code"`
	TotalHits int64  `json:"total_hits"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Get handles GET /api/v1/urls/{code}: the full URL record, not just
// the long URL Redirect resolves to.
func (h *URLHandler) Get(c *gin.Context) {
	code := c.Param("shortCode")

	record, err := h.service.Get(c.Request.Context(), code)
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := urlResponse{
		ID:        record.ID,
		LongURL:   record.LongURL,
		TotalHits: record.TotalHits,
		IsActive:  record.IsActive,
		CreatedAt: record.CreatedAt.Format(time.RFC3339),
		UpdatedAt: record.UpdatedAt.Format(time.RFC3339),
	}
	if record.ShortCode != nil {
		resp.ShortCode = *record.ShortCode
	}
	c.JSON(http.StatusOK, resp)
}

// GetStats handles GET /api/v1/urls/{code}/stats.
func (h *URLHandler) GetStats(c *gin.Context) {
	code := c.Param("shortCode")

	stats, err := h.service.Stats(c.Request.Context(), code)
	if err != nil {
		h.handleError(c, err)
		return
	}

	topReferers := make([]referrerCountResponse, 0, len(stats.TopReferers))
	for _, rc := range stats.TopReferers {
		topReferers = append(topReferers, referrerCountResponse{Referer: rc.Referer, Count: rc.Count})
	}

	hitsOverTime := make([]dailyCountResponse, 0, len(stats.HitsOverTime))
	for _, dc := range stats.HitsOverTime {
		hitsOverTime = append(hitsOverTime, dailyCountResponse{Date: dc.Date.Format("2006-01-02"), Count: dc.Count})
	}

	c.JSON(http.StatusOK, statsResponse{
		TotalHits:    stats.TotalHits,
		ByDevice:     stats.ByDevice,
		ByBrowser:    stats.ByBrowser,
		ByCountry:    stats.ByCountry,
		TopReferers:  topReferers,
		HitsOverTime: hitsOverTime,
	})
}

// Delete handles DELETE /api/v1/urls/{code}.
func (h *URLHandler) Delete(c *gin.Context) {
	code := c.Param("shortCode")

	if err := h.service.Delete(c.Request.Context(), code); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// handleError centralizes the service-error-to-HTTP-status mapping,
// matching the teacher's single-switch handleError pattern.
func (h *URLHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shortener.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "short url not found"})
	case errors.Is(err, shortener.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, shortener.ErrCapacityExceeded):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "short code capacity exceeded"})
	case errors.Is(err, shortener.ErrExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not allocate a unique short code"})
	case errors.Is(err, shortener.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
