package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"taskboard/internal/apperror"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

var statusByKind = map[apperror.Kind]int{
	apperror.KindUnauthenticated: http.StatusUnauthorized,
	apperror.KindForbidden:       http.StatusForbidden,
	apperror.KindNotFound:        http.StatusNotFound,
	apperror.KindValidation:      http.StatusBadRequest,
	apperror.KindConflict:        http.StatusConflict,
}

// respondError writes err as {"error": msg}. Errors without a kind are
// logged and reported as a bare 500.
func respondError(c *gin.Context, err error) {
	status, ok := statusByKind[apperror.KindOf(err)]
	if !ok {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: apperror.MessageOf(err)})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// pathID parses a uuid path parameter; what names it in the error.
func pathID(c *gin.Context, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		badRequest(c, "Invalid "+what+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

// queryID parses an optional uuid query parameter.
func queryID(c *gin.Context, param string) (*uuid.UUID, bool) {
	raw, present := c.GetQuery(param)
	if !present || raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, "Invalid "+param+" format")
		return nil, false
	}
	return &id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return false
	}
	return true
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, apperror.Validation("invalid id in reorder list: " + s)
		}
		ids[i] = id
	}
	return ids, nil
}
