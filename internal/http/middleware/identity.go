package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-backend/internal/http/response"
	"github.com/yungbote/neurobridge-backend/internal/platform/ctxutil"
)

const (
	headerJobNumber  = "X-Job-Number"
	headerOrgPositon = "X-Org-Position"
)

// RequireIdentity extracts the caller's job_number/organization_position from
// request headers and attaches them via ctxutil.WithIdentity, standing in for
// the out-of-scope JWT/session auth layer this engine assumes runs upstream
// (a gateway or reverse proxy already authenticated the caller and forwards
// their HR identity as headers).
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobNumber := strings.TrimSpace(c.GetHeader(headerJobNumber))
		if jobNumber == "" {
			response.RespondError(c, http.StatusUnauthorized, "missing "+headerJobNumber, nil)
			c.Abort()
			return
		}
		id := ctxutil.Identity{JobNumber: jobNumber}
		if raw := strings.TrimSpace(c.GetHeader(headerOrgPositon)); raw != "" {
			pos, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				response.RespondError(c, http.StatusBadRequest, "invalid "+headerOrgPositon, nil)
				c.Abort()
				return
			}
			id.OrgPositionID = pos
			id.HasOrgPosition = true
		}
		ctx := ctxutil.WithIdentity(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
