package room

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/teamspace/hub/internal/middleware"
	"github.com/teamspace/hub/internal/models"
	"github.com/teamspace/hub/internal/pkg/pagination"
	"github.com/teamspace/hub/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/rooms", authMW)
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id/messages", h.messages)

	n := rg.Group("/notifications", authMW)
	n.GET("", h.notifications)
	n.POST("/read", h.markNotificationsRead)
}

func (h *Handler) list(c *gin.Context) {
	rooms, err := h.svc.ListForUser(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, rooms)
}

type createRoomDTO struct {
	Name    string          `json:"name" binding:"required"`
	Kind    models.RoomKind `json:"kind" binding:"required"`
	Members []string        `json:"members"`
}

func (h *Handler) create(c *gin.Context) {
	var dto createRoomDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "name and kind are required")
		return
	}

	room, err := h.svc.Create(middleware.CurrentUserID(c), dto.Name, dto.Kind, dto.Members)
	if err != nil {
		if errors.Is(err, errInvalidKind) {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, room)
}

func (h *Handler) messages(c *gin.Context) {
	query, err := h.svc.MessagesQuery(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, errNotAMember) {
			response.Forbidden(c)
			return
		}
		response.InternalError(c, err)
		return
	}

	var msgs []models.MessageModel
	page, err := pagination.Paginate(query, pagination.FromContext(c), &msgs)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, msgs, page)
}

func (h *Handler) notifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	items, err := h.svc.Notifications(middleware.CurrentUserID(c), unreadOnly)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) markNotificationsRead(c *gin.Context) {
	count, err := h.svc.MarkNotificationsRead(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"updated": count})
}
