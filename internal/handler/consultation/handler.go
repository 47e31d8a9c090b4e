package consultation

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/handler"
	"github.com/jwalitptl/consult-api/internal/middleware"
	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/scheduling"
	"github.com/jwalitptl/consult-api/pkg/httputil"
)

type Service interface {
	Submit(ctx context.Context, actor model.Actor, message string) (*model.ConsultationRequest, error)
	Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultationRequest, error)
	CancelByDoctor(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultationRequest, error)
	Schedule(ctx context.Context, actor model.Actor, id uuid.UUID, at time.Time) (*model.ConsultationRequest, error)
	Reschedule(ctx context.Context, actor model.Actor, id uuid.UUID, at time.Time) (*model.ConsultationRequest, error)
	Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultationRequest, error)
	ListByStatus(ctx context.Context, actor model.Actor, status string) ([]*model.ConsultationRequest, error)
	ListMine(ctx context.Context, actor model.Actor) ([]*model.ConsultationRequest, error)
	Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultationRequest, error)
}

type Handler struct {
	svc Service
	loc *time.Location
}

// NewHandler builds the handler. loc interprets wall-clock appointment dates.
func NewHandler(svc Service, loc *time.Location) *Handler {
	return &Handler{svc: svc, loc: loc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patient := middleware.RequireRole(model.RolePatient)
	doctor := middleware.RequireRole(model.RoleDoctor)

	requests := r.Group("/consultation-request")
	{
		requests.POST("", patient, h.Submit)
		requests.GET("/:id", h.Get)
		requests.POST("/:id/confirm", patient, h.Confirm)
		requests.POST("/:id/cancel", patient, h.Cancel)
		requests.POST("/:id/canceldoc", doctor, h.CancelByDoctor)
		requests.POST("/:id/schedule", doctor, h.Schedule)
		requests.POST("/:id/reschedule", doctor, h.Reschedule)
	}

	consultations := r.Group("/consultations")
	{
		consultations.GET("", doctor, h.ListByStatus)
		consultations.GET("/me", patient, h.ListMine)
	}
}

func (h *Handler) Submit(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	var req model.SubmitConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	created, err := h.svc.Submit(c.Request.Context(), actor, req.Message)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, created)
}

func (h *Handler) Get(c *gin.Context) {
	h.byID(c, h.svc.Get)
}

func (h *Handler) Confirm(c *gin.Context) {
	h.byID(c, h.svc.Confirm)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.byID(c, h.svc.Cancel)
}

func (h *Handler) CancelByDoctor(c *gin.Context) {
	h.byID(c, h.svc.CancelByDoctor)
}

func (h *Handler) Schedule(c *gin.Context) {
	h.withDate(c, h.svc.Schedule)
}

func (h *Handler) Reschedule(c *gin.Context) {
	h.withDate(c, h.svc.Reschedule)
}

func (h *Handler) ListByStatus(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	requests, err := h.svc.ListByStatus(c.Request.Context(), actor, c.Query("status"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, requests)
}

func (h *Handler) ListMine(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	requests, err := h.svc.ListMine(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, requests)
}

type idOp func(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultationRequest, error)

func (h *Handler) byID(c *gin.Context, op idOp) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c)
	if !ok {
		return
	}

	req, err := op(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, req)
}

type dateOp func(ctx context.Context, actor model.Actor, id uuid.UUID, at time.Time) (*model.ConsultationRequest, error)

func (h *Handler) withDate(c *gin.Context, op dateOp) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c)
	if !ok {
		return
	}

	var body model.ScheduleConsultationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	at, err := scheduling.ParseAppointmentDate(body.AppointmentDate, h.loc)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	req, err := op(c.Request.Context(), actor, id, at)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, req)
}
