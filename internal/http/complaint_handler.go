package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"sipelan-service/internal/service"
	"sipelan-service/internal/storage"
)

const evidenceField = "bukti_file"

func (h *Handler) submitComplaint(c *gin.Context) {
	var input service.SubmitComplaintInput

	if isFormRequest(c) {
		if err := bindSubmissionForm(c, &input); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		fileHeader, err := c.FormFile(evidenceField)
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			c.JSON(http.StatusBadRequest, errorResponse("bukti_file tidak dapat dibaca"))
			return
		default:
			file, err := fileHeader.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, errorResponse("bukti_file tidak dapat dibaca"))
				return
			}
			defer file.Close()
			input.Evidence = &storage.Upload{
				Filename:    fileHeader.Filename,
				ContentType: fileHeader.Header.Get("Content-Type"),
				Size:        fileHeader.Size,
				Body:        file,
			}
		}
	} else if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	receipt, err := h.lifecycleService.Submit(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, messageResponse("Pengaduan berhasil dikirim", receipt))
}

func (h *Handler) trackComplaint(c *gin.Context) {
	result, err := h.lifecycleService.TrackByCode(c.Request.Context(), c.Param("kode"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) listComplaints(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	pageNum, ok := queryInt(c, "page")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	opts := service.ListComplaintsOptions{
		Page:       pageNum,
		Limit:      limit,
		Status:     strings.TrimSpace(c.Query("status")),
		BidangID:   strings.TrimSpace(c.Query("bidang_id")),
		CategoryID: strings.TrimSpace(c.Query("kategori_id")),
		Search:     strings.TrimSpace(c.Query("search")),
	}

	page, err := h.lifecycleService.ListComplaints(c.Request.Context(), principal, opts)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(page))
}

func (h *Handler) complaintStatistics(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	stats, err := h.lifecycleService.Statistics(c.Request.Context(), principal, strings.TrimSpace(c.Query("bidang_id")))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) getComplaint(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "id pengaduan")
	if !ok {
		return
	}

	detail, err := h.lifecycleService.GetDetail(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(detail))
}

func (h *Handler) updateComplaintStatus(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "id pengaduan")
	if !ok {
		return
	}

	var input service.UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	complaint, err := h.lifecycleService.UpdateStatus(c.Request.Context(), principal, id, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse("Status pengaduan diperbarui", complaint))
}

func (h *Handler) respondToComplaint(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "id pengaduan")
	if !ok {
		return
	}

	var input service.StaffResponseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if input.ActorName == "" {
		input.ActorName = principal.Name
	}

	entry, err := h.lifecycleService.RecordStaffResponse(c.Request.Context(), principal, id, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, messageResponse("Tanggapan berhasil disimpan", entry))
}

func (h *Handler) createDisposition(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var input service.DispositionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	disposition, err := h.lifecycleService.Disposition(c.Request.Context(), principal, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, messageResponse("Disposisi berhasil dibuat", disposition))
}

func (h *Handler) listDispositions(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	items, err := h.lifecycleService.ListDispositions(c.Request.Context(), principal, c.Query("pengaduan_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(items))
}

func isFormRequest(c *gin.Context) bool {
	switch c.ContentType() {
	case gin.MIMEMultipartPOSTForm, gin.MIMEPOSTForm:
		return true
	default:
		return false
	}
}

// bindSubmissionForm reads the complaint fields of a multipart submission.
func bindSubmissionForm(c *gin.Context, input *service.SubmitComplaintInput) error {
	input.CategoryID = c.PostForm("kategori_id")
	input.Title = c.PostForm("judul_pengaduan")
	input.Body = c.PostForm("isi_pengaduan")
	input.Location = c.PostForm("lokasi_kejadian")
	input.IncidentDate = c.PostForm("tanggal_kejadian")
	input.ReporterName = c.PostForm("nama_pelapor")
	input.ReporterEmail = c.PostForm("email_pelapor")
	input.ReporterPhone = c.PostForm("telepon_pelapor")

	if raw := strings.TrimSpace(c.PostForm("anonim")); raw != "" {
		anonymous, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.New("anonim harus bernilai true atau false")
		}
		input.Anonymous = anonymous
	}
	return nil
}
