package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/dto"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/service"
	appErrors "github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/errors"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/response"
)

// PhotoHandler wires HTTP endpoints to the photo service.
type PhotoHandler struct {
	service *service.PhotoService
	metrics *service.MetricsService
}

// NewPhotoHandler creates a new handler.
func NewPhotoHandler(svc *service.PhotoService, metrics *service.MetricsService) *PhotoHandler {
	return &PhotoHandler{service: svc, metrics: metrics}
}

// Eligibility godoc
// @Summary Check upload eligibility
// @Description Evaluate whether the caller may upload a photo for the entity right now
// @Tags Photos
// @Produce json
// @Security BearerAuth
// @Param entity_id query string true "Entity ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /photos/eligibility [get]
func (h *PhotoHandler) Eligibility(c *gin.Context) {
	entityID := c.Query("entity_id")
	if entityID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "entity_id is required"))
		return
	}

	view, err := h.service.Eligibility(c.Request.Context(), entityID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Upload godoc
// @Summary Upload a progress photo
// @Description Accept a photo when eligibility and proximity checks pass; a denial is returned as data, not as an error
// @Tags Photos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UploadPhotoRequest true "Photo payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /photos [post]
func (h *PhotoHandler) Upload(c *gin.Context) {
	var req dto.UploadPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid photo payload"))
		return
	}

	result, err := h.service.Upload(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveUploadOutcome(result.Decision.Status)
	}
	if result.Submission == nil {
		response.JSON(c, http.StatusOK, result, nil)
		return
	}
	response.Created(c, result)
}

// History godoc
// @Summary List photo submissions
// @Description Return stored submissions for an entity, newest first
// @Tags Photos
// @Produce json
// @Security BearerAuth
// @Param entity_id query string true "Entity ID"
// @Param limit query int false "Maximum rows to return"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /photos/history [get]
func (h *PhotoHandler) History(c *gin.Context) {
	entityID := c.Query("entity_id")
	if entityID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "entity_id is required"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	submissions, err := h.service.History(c.Request.Context(), entityID, limit, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}

// Certificate godoc
// @Summary Download the completion certificate
// @Description Render the PDF certificate once every semester photo is in place
// @Tags Photos
// @Produce application/pdf
// @Security BearerAuth
// @Param entity_id query string true "Entity ID"
// @Param entity_name query string false "Entity display name"
// @Param student_name query string true "Student display name"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /photos/certificate [get]
func (h *PhotoHandler) Certificate(c *gin.Context) {
	entityID := c.Query("entity_id")
	studentName := c.Query("student_name")
	if entityID == "" || studentName == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "entity_id and student_name are required"))
		return
	}

	pdf, err := h.service.Certificate(c.Request.Context(), entityID, c.Query("entity_name"), studentName, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="completion-certificate.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
