package views

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrovista/fieldmap/backend"
	"github.com/agrovista/fieldmap/geometry"
	"github.com/agrovista/fieldmap/services"
)

// UserController carries the engine wiring for every handler.
type UserController struct {
	BE     backend.Client
	Split  *services.SplitOrchestrator
	Edit   *services.EditManager
	Status *services.StatusService
}

// writeErr maps the error taxonomy onto HTTP codes. Permission failures
// get a fixed, non-retryable message; merge cleanup failures are reported
// distinctly with the ids the caller has to reconcile.
func writeErr(c *gin.Context, err error) {
	var pe *backend.PermissionError
	var ve *backend.ValidationError
	var ne *backend.NetworkError
	var me *services.MergeIncompleteError

	switch {
	case errors.As(err, &me):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      "merge created but cleanup incomplete",
			"new_aoi_id": me.NewAOIID,
			"undeleted":  me.Undeleted,
		})
	case errors.As(err, &pe):
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission to perform this operation"})
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Msg, "items": ve.Items})
	case errors.As(err, &ne):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "retryable": true})
	case errors.Is(err, geometry.ErrMalformed),
		errors.Is(err, geometry.ErrEmpty),
		errors.Is(err, geometry.ErrDegenerateInput),
		errors.Is(err, geometry.ErrInvalidGeometry):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNoSession),
		errors.Is(err, services.ErrBadPhase),
		errors.Is(err, services.ErrOperationInFlight),
		errors.Is(err, services.ErrStaleSession),
		errors.Is(err, services.ErrPreviewNotFound),
		errors.Is(err, services.ErrNotEditing):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
