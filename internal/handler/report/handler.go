package report

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/consult-api/internal/handler"
	"github.com/jwalitptl/consult-api/internal/middleware"
	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/pkg/httputil"
)

type Service interface {
	MonthlyStatus(ctx context.Context, actor model.Actor, month string) ([]model.DayStatus, error)
	UserStats(ctx context.Context, actor model.Actor) ([]*model.RoleGenderCount, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// MonthQuery is the query string of the monthly status report.
type MonthQuery struct {
	Month string `form:"month" binding:"required,datetime=2006-01"`
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/appointments/monthly-status", middleware.RequireRole(model.RoleDoctor), h.MonthlyStatus)
	r.GET("/stats/users", middleware.RequireRole(model.RoleAdmin), h.UserStats)
}

func (h *Handler) MonthlyStatus(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	var q MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	days, err := h.svc.MonthlyStatus(c.Request.Context(), actor, q.Month)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, days)
}

func (h *Handler) UserStats(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	stats, err := h.svc.UserStats(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, stats)
}
