package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query auditdomain.ListAuditLogRequest
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}
	query.Action = strings.TrimSpace(query.Action)
	query.TargetType = strings.TrimSpace(query.TargetType)

	resp, err := s.auditSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
