package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codyseavey/tcg-exchange/internal/api/middleware"
	"github.com/codyseavey/tcg-exchange/internal/apperrors"
)

// respondError writes the {code, name, message} envelope. Internal causes
// are logged here and never sent to the client.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	if apperrors.KindOf(err) == apperrors.KindInternal {
		log.WithError(err).WithFields(logrus.Fields{
			"method":       c.Request.Method,
			"path":         c.FullPath(),
			"collector_id": middleware.CollectorID(c),
		}).Error("request failed")
	}
	middleware.Abort(c, err)
}

// bindJSON reports binding failures as InputErrors.
func bindJSON(c *gin.Context, log logrus.FieldLogger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, log, apperrors.Input("invalid request body: %v", err))
		return false
	}
	return true
}

func paramID(c *gin.Context, log logrus.FieldLogger, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		respondError(c, log, apperrors.Input("invalid %s", name))
		return 0, false
	}
	return uint(id), true
}
