package response

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
)

// Pagination metadata returned with paginated responses.
type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	TotalPage   int   `json:"total_page"`
	Size        int   `json:"size"`
	HasNextPage bool  `json:"has_next_page"`
}

// pagedResponse is the envelope for paginated list responses.
type pagedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Paged sends a paginated response.
func Paged(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, pagedResponse{
		Data:       data,
		Pagination: pagination,
	})
}

// OK sends a 200 response. Arrays/slices are wrapped in {data: [...]}.
func OK(c *gin.Context, data interface{}) {
	if data != nil {
		v := reflect.ValueOf(data)
		if v.Kind() == reflect.Slice {
			c.JSON(http.StatusOK, gin.H{"data": data})
			return
		}
	}
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context) {
	abort(c, http.StatusUnauthorized, "authentication required")
}

// Forbidden sends a 403 error response.
func Forbidden(c *gin.Context) {
	abort(c, http.StatusForbidden, "forbidden")
}

// ForbiddenMsg sends a 403 error response with a custom message.
func ForbiddenMsg(c *gin.Context, message string) {
	abort(c, http.StatusForbidden, message)
}

// MethodNotAllowed sends a 405 error response.
func MethodNotAllowed(c *gin.Context) {
	abort(c, http.StatusMethodNotAllowed, "method not allowed")
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context) {
	abort(c, http.StatusNotFound, "not found")
}

// NotFoundMsg sends a 404 error with a custom message.
func NotFoundMsg(c *gin.Context, message string) {
	abort(c, http.StatusNotFound, message)
}

// UnprocessableEntity sends a 422 error response.
func UnprocessableEntity(c *gin.Context, message string) {
	abort(c, http.StatusUnprocessableEntity, message)
}

// InternalError sends a 500 error response.
func InternalError(c *gin.Context, err error) {
	abort(c, http.StatusInternalServerError, err.Error())
}

// ServiceUnavailable sends a 503 error response, used when persistence is
// degraded.
func ServiceUnavailable(c *gin.Context, message string) {
	abort(c, http.StatusServiceUnavailable, message)
}

func abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"ok": 0, "code": code, "message": message})
}
