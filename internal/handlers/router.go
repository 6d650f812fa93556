package handlers

import (
	"net/http"

	"github.com/examshield/exam-service/internal/models"
	"github.com/examshield/exam-service/internal/services"
	"github.com/examshield/exam-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	testHandler       *TestHandler
	attemptHandler    *AttemptHandler
	proctoringHandler *ProctoringHandler
}

func NewHandlerManager(
	testService services.TestService,
	attemptService services.AttemptService,
	proctoringService services.ProctoringService,
	reportService services.ReportService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		testHandler:       NewTestHandler(testService, logger),
		attemptHandler:    NewAttemptHandler(attemptService, logger),
		proctoringHandler: NewProctoringHandler(proctoringService, reportService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint, outside the identity gate
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "exam-service",
		})
	})

	// API v1 routes, all behind the gateway-asserted identity
	v1 := router.Group("/api/v1")
	v1.Use(IdentityMiddleware())
	{
		// Test routes
		tests := v1.Group("/tests")
		{
			tests.GET("", hm.testHandler.ListTests)
			tests.GET("/:id", hm.testHandler.GetTest)
			tests.GET("/:id/questions", hm.testHandler.GetTestQuestions)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/answer", hm.attemptHandler.SaveAnswer)
			attempts.PUT("/:id/time", hm.attemptHandler.UpdateTime)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
		}

		// Proctoring routes
		proctoring := v1.Group("/proctoring")
		{
			proctoring.POST("/events", hm.proctoringHandler.LogEvent)
			proctoring.POST("/frames", hm.proctoringHandler.ProcessFrame)
			proctoring.GET("/attempts/:id/events", hm.proctoringHandler.ListAttemptEvents)

			// Operator views
			operator := proctoring.Group("")
			operator.Use(RequireRole(models.RoleProctor, models.RoleOperator))
			{
				operator.GET("/tests/:id/events", hm.proctoringHandler.ListTestEvents)
				operator.GET("/tests/:id/stats", hm.proctoringHandler.GetStats)
				operator.GET("/tests/:id/stats/export", hm.proctoringHandler.ExportStats)
			}
		}
	}
}
