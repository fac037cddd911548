package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/asthma-api/server/middleware"
)

// RespondWithError writes err as the JSON error envelope. An *AppError
// supplies the status and body; anything else becomes a generic 500 whose
// cause is logged but never sent.
func RespondWithError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// RespondOK sends a 200 response with body.
func RespondOK(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

// RespondCreated sends a 201 response with body.
func RespondCreated(c *gin.Context, body any) {
	c.JSON(http.StatusCreated, body)
}
