package appointment

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/handler"
	"github.com/jwalitptl/consult-api/internal/middleware"
	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/pkg/httputil"
)

type Service interface {
	CreateDirect(ctx context.Context, actor model.Actor, req *model.CreateAppointmentRequest) (*model.Appointment, error)
	CreateFromRequest(ctx context.Context, actor model.Actor, requestID uuid.UUID, slot *model.Slot) (*model.Appointment, error)
	CancelByDoctor(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error)
	CancelByPatient(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error)
	Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, actor model.Actor, status string) ([]*model.Appointment, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patient := middleware.RequireRole(model.RolePatient)
	doctor := middleware.RequireRole(model.RoleDoctor)

	appointments := r.Group("/appointments")
	{
		appointments.GET("", middleware.RequireRole(model.RoleDoctor, model.RolePatient), h.List)
		appointments.POST("", doctor, h.CreateDirect)
		appointments.POST("/create-with-consultation/:id", doctor, h.CreateFromRequest)
		appointments.POST("/:id/cancel", doctor, h.CancelByDoctor)
		appointments.POST("/:id/confirm", patient, h.Confirm)
		appointments.POST("/:id/cancelbypatient", patient, h.CancelByPatient)
	}
}

func (h *Handler) CreateDirect(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	apt, err := h.svc.CreateDirect(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, apt)
}

func (h *Handler) CreateFromRequest(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	requestID, ok := handler.ParamID(c)
	if !ok {
		return
	}

	var slot model.Slot
	if err := c.ShouldBindJSON(&slot); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	apt, err := h.svc.CreateFromRequest(c.Request.Context(), actor, requestID, &slot)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) CancelByDoctor(c *gin.Context) {
	h.byID(c, h.svc.CancelByDoctor)
}

func (h *Handler) CancelByPatient(c *gin.Context) {
	h.byID(c, h.svc.CancelByPatient)
}

func (h *Handler) Confirm(c *gin.Context) {
	h.byID(c, h.svc.Confirm)
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	appointments, err := h.svc.List(c.Request.Context(), actor, c.Query("status"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) byID(c *gin.Context, op func(context.Context, model.Actor, uuid.UUID) (*model.Appointment, error)) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c)
	if !ok {
		return
	}

	apt, err := op(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apt)
}
