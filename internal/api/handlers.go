package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "directory-engine/internal/common/errors"
	"directory-engine/internal/schema"
	"directory-engine/internal/service"
)

type Handler struct {
	engine Engine
}

func (h *Handler) GenerateSchema(c *gin.Context) {
	var in schema.Interview
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadBody(c, err)
		return
	}

	resp, err := h.engine.GenerateSchema(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

func (h *Handler) AutofillListing(c *gin.Context) {
	var body struct {
		EntityName string `json:"entityName"`
		EntityURL  string `json:"entityUrl"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadBody(c, err)
		return
	}

	resp, err := h.engine.AutofillListing(c.Request.Context(), service.AutofillRequest{
		DirectoryID: c.Param("id"),
		EntityName:  body.EntityName,
		EntityURL:   body.EntityURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

func (h *Handler) CreateListing(c *gin.Context) {
	var body struct {
		Payload schema.Payload `json:"payload"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadBody(c, err)
		return
	}

	created, err := h.engine.CreateListing(c.Request.Context(), callerOf(c), service.CreateListingRequest{
		DirectoryID: c.Param("id"),
		Payload:     body.Payload,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, created)
}

func (h *Handler) SetListingStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadBody(c, err)
		return
	}

	resp, err := h.engine.SetListingStatus(c.Request.Context(), callerOf(c), c.Param("id"), body.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

func (h *Handler) GetListing(c *gin.Context) {
	l, err := h.engine.GetListing(c.Request.Context(), callerOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, l)
}

func (h *Handler) ListListings(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		respondError(c, err)
		return
	}

	out, err := h.engine.ListListings(c.Request.Context(), callerOf(c), service.ListRequest{
		DirectoryID: c.Param("id"),
		Status:      c.Query("status"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, out)
}

func (h *Handler) SearchListings(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.engine.SearchListings(c.Request.Context(), service.SearchRequest{
		DirectoryID: c.Param("id"),
		Query:       c.Query("q"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, res)
}

func pagination(c *gin.Context) (int, int, error) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := intQuery(c, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewInvalidRequestError(key + " must be a non-negative integer")
	}
	return n, nil
}
