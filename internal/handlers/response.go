package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/applypilot/applypilot/internal/common"
)

// Every endpoint answers with the same envelope:
// {"success": true, "data": ...} or {"success": false, "error": {...}}.

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, err error) {
	status := common.HTTPStatus(err)
	body := gin.H{"code": common.ErrorCode(err)}
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs.
		body["message"] = "internal server error"
	} else {
		body["message"] = err.Error()
	}
	c.JSON(status, gin.H{"success": false, "error": body})
}

// respondBindError reports request-body validation failures with issue details.
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    common.CodeValidation,
			"message": "invalid request body",
			"details": err.Error(),
		},
	})
}
