package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/teamspace/hub/internal/middleware"
	"github.com/teamspace/hub/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth")
	g.POST("/login", h.login)
	g.POST("/register", h.register)

	a := g.Group("", authMW)
	a.POST("/logout", h.logout)
}

type loginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var dto loginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "username and password are required")
		return
	}

	token, user, err := h.svc.Login(dto.Username, dto.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, errUserNotFound) || errors.Is(err, errWrongPassword) {
			response.ForbiddenMsg(c, "invalid username or password")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.OK(c, gin.H{"token": token, "user": user})
}

type registerDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
}

func (h *Handler) register(c *gin.Context) {
	var dto registerDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "username and a password of at least 8 characters are required")
		return
	}

	user, err := h.svc.Register(dto.Username, dto.Password, dto.Name)
	if err != nil {
		if errors.Is(err, errUsernameTaken) {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, user)
}

func (h *Handler) logout(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	sessionID := middleware.CurrentSessionID(c)
	if err := h.svc.Logout(userID, sessionID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
