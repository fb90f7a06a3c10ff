package controller

import (
	"codejudge/internal/common/auth"
	"codejudge/internal/common/http/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the submission API under /api/v1.
func RegisterRoutes(r gin.IRouter, h *JudgeController, authenticator middleware.Authenticator) {
	api := r.Group("/api/v1/submissions")
	api.Use(middleware.AuthMiddleware(authenticator, middleware.AuthPolicy{}))
	api.POST("", h.Submit)
	api.GET("/:id/status", h.GetStatus)

	judges := api.Group("")
	judges.Use(middleware.AuthMiddleware(authenticator, middleware.AuthPolicy{Roles: []string{auth.RoleJudge, auth.RoleAdmin}}))
	judges.POST("/:id/rejudge", h.Rejudge)
	judges.GET("/:id/report", h.Report)
}
