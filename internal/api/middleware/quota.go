package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/chart_editor_server/internal/model/dto"
	"github.com/qs3c/chart_editor_server/internal/pkg/response"
	"github.com/qs3c/chart_editor_server/internal/service"
)

// QuotaCheck 创建类接口的配额预检，在解析请求体之前拒绝已用完配额的请求。
// 最终判定仍由 ChartService 在写库时完成。
func QuotaCheck(quotaService *service.QuotaService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		d, err := quotaService.CheckQuota(userID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				response.NotFoundError(c, err.Error())
			} else {
				response.ServerError(c, "配额检查失败")
			}
			c.Abort()
			return
		}

		if !d.Allowed {
			response.QuotaExceeded(c, "今日图表创建配额已用完", &dto.QuotaExceededData{
				Current: d.Current,
				Limit:   d.Limit,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
