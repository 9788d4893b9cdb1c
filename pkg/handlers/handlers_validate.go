package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hmiyake/roster-optimizer-go/pkg/models"
	"github.com/hmiyake/roster-optimizer-go/pkg/optimizer"
)

// ValidateInput dry-runs request normalization without solving, so callers
// can surface input problems before paying for a solve.
func (h *Handler) ValidateInput(c *gin.Context) {
	var req models.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if err := optimizer.Validate(&req); err != nil {
		var verr *optimizer.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusOK, gin.H{
				"valid": false,
				"error": verr.Msg,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"staff_count": len(req.Staff),
			"shift_count": len(req.Shifts),
			"day_count":   len(req.Dates),
		},
	})
}
