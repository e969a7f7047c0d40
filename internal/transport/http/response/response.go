package response

import (
	"github.com/gin-gonic/gin"

	"userapi/internal/model"
)

type MessageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type UserResponse struct {
	Message string      `json:"message,omitempty"`
	User    *model.User `json:"user"`
}

func Message(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, MessageResponse{Message: message})
}

// Error includes the raw error text in the body.
func Error(c *gin.Context, httpStatus int, message string, err error) {
	c.JSON(httpStatus, MessageResponse{
		Message: message,
		Error:   err.Error(),
	})
}

func User(c *gin.Context, httpStatus int, message string, user *model.User) {
	c.JSON(httpStatus, UserResponse{
		Message: message,
		User:    user,
	})
}
