package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/asthma-api/server"
	"github.com/kbukum/asthma-api/validation"
)

func (h *Handler) getUser(c *gin.Context) {
	id, err := validation.ValidateUUID("id", c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	u, err := h.accounts.Lookup(c.Request.Context(), id.String())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, userResponse{Success: true, User: u})
}
