package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sipelan-service/internal/service"
)

func (h *Handler) listBidang(c *gin.Context) {
	items, err := h.bidangService.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(items))
}

func (h *Handler) createBidang(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var input service.BidangInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	bidang, err := h.bidangService.Create(c.Request.Context(), principal, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, messageResponse("Bidang berhasil dibuat", bidang))
}

func (h *Handler) updateBidang(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "id bidang")
	if !ok {
		return
	}

	var input service.BidangInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	bidang, err := h.bidangService.Update(c.Request.Context(), principal, id, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse("Bidang berhasil diperbarui", bidang))
}

func (h *Handler) deleteBidang(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "id bidang")
	if !ok {
		return
	}

	if err := h.bidangService.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse("Bidang berhasil dihapus", nil))
}

func (h *Handler) listCategories(c *gin.Context) {
	items, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(items))
}

func (h *Handler) createCategory(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var input service.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), principal, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, messageResponse("Kategori berhasil dibuat", category))
}
