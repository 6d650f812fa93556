package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/examshield/exam-service/internal/ml"
	"github.com/examshield/exam-service/internal/services"
	"github.com/examshield/exam-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// maxFrameSize bounds an uploaded webcam frame (5 MB).
const maxFrameSize = 5 << 20

type ProctoringHandler struct {
	BaseHandler
	proctoringService services.ProctoringService
	reportService     services.ReportService
}

func NewProctoringHandler(
	proctoringService services.ProctoringService,
	reportService services.ReportService,
	logger utils.Logger,
) *ProctoringHandler {
	return &ProctoringHandler{
		BaseHandler:       NewBaseHandler(logger),
		proctoringService: proctoringService,
		reportService:     reportService,
	}
}

// LogEvent records a client-observed proctoring event
// @Summary Log proctoring event
// @Description Records a behavioral event (tab switch, window blur, ...) observed by the exam client
// @Tags proctoring
// @Accept json
// @Produce json
// @Param event body services.LogEventRequest true "Event data"
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /proctoring/events [post]
func (h *ProctoringHandler) LogEvent(c *gin.Context) {
	var req services.LogEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.currentUserID(c)
	if userID == "" {
		return
	}

	event, err := h.proctoringService.LogEvent(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

// ProcessFrame analyzes one webcam frame
// @Summary Process webcam frame
// @Description Sends a captured frame to the inference collaborator and records the classified result
// @Tags proctoring
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Webcam frame"
// @Param test_id formData uint true "Test ID"
// @Param attempt_id formData uint true "Attempt ID"
// @Param question_number formData int false "Current question number"
// @Success 200 {object} services.FrameResult
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /proctoring/frames [post]
func (h *ProctoringHandler) ProcessFrame(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == "" {
		return
	}

	testID, err := strconv.ParseUint(c.PostForm("test_id"), 10, 32)
	if err != nil || testID == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid test_id",
		})
		return
	}
	attemptID, err := strconv.ParseUint(c.PostForm("attempt_id"), 10, 32)
	if err != nil || attemptID == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid attempt_id",
		})
		return
	}
	questionNumber, _ := strconv.Atoi(c.PostForm("question_number"))

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "No image provided",
		})
		return
	}
	if fileHeader.Size > maxFrameSize {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Message: "Image too large",
			Details: fmt.Sprintf("maximum size is %d bytes", maxFrameSize),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to read image",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxFrameSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to read image",
			Details: err.Error(),
		})
		return
	}

	result, err := h.proctoringService.ProcessFrame(c.Request.Context(), &services.FrameRequest{
		TestID:         uint(testID),
		AttemptID:      uint(attemptID),
		QuestionNumber: questionNumber,
		Frame: ml.Frame{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Data:        data,
		},
	}, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAttemptEvents lists the caller's events for one attempt
// @Summary List attempt events
// @Description Lists the caller's proctoring events for one attempt, newest first
// @Tags proctoring
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} SuccessResponse
// @Router /proctoring/attempts/{id}/events [get]
func (h *ProctoringHandler) ListAttemptEvents(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.currentUserID(c)
	if userID == "" {
		return
	}

	eventList, err := h.proctoringService.ListByAttempt(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, eventList)
}

// ListTestEvents lists all events for one test (operator view)
// @Summary List test events
// @Description Lists proctoring events across all users of one test with identity fields joined
// @Tags proctoring
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /proctoring/tests/{id}/events [get]
func (h *ProctoringHandler) ListTestEvents(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Listing test proctoring events", "test_id", id)

	eventList, err := h.proctoringService.ListByTest(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, eventList)
}

// GetStats returns the per-user violation rollup for one test
// @Summary Get violation stats
// @Description Returns per-user violation counts and average cheating score for one test
// @Tags proctoring
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /proctoring/tests/{id}/stats [get]
func (h *ProctoringHandler) GetStats(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}

	stats, err := h.proctoringService.StatsByTest(c.Request.Context(), testID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportStats downloads the violation rollup as an xlsx workbook
// @Summary Export violation stats
// @Description Exports the per-user violation rollup for one test as an Excel file
// @Tags proctoring
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Test ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Router /proctoring/tests/{id}/stats/export [get]
func (h *ProctoringHandler) ExportStats(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}

	data, err := h.reportService.ExportViolationStats(c.Request.Context(), testID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("violations_test_%d_%s.xlsx", testID, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *ProctoringHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Attempt not found",
		})
	case errors.Is(err, services.ErrEmptyFrame):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "No image provided",
		})
	case errors.Is(err, services.ErrInferenceUnavailable):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Message: "Frame analysis unavailable",
			Code:    "inference_unavailable",
		})
	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
