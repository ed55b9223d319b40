package response

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// 业务错误码，HTTP 状态码恒为 200
const (
	CodeSuccess          = 0
	CodeParamError       = 1000
	CodeAuthFailed       = 1001
	CodePermissionDenied = 1002
	CodeResourceNotFound = 1003
	CodeQuotaExceeded    = 1004
	CodeDuplicateAction  = 1005
	CodeServerError      = 5000
)

var codeMessages = map[int]string{
	CodeSuccess:          "success",
	CodeParamError:       "参数错误",
	CodeAuthFailed:       "认证失败",
	CodePermissionDenied: "权限不足",
	CodeResourceNotFound: "资源不存在",
	CodeQuotaExceeded:    "今日图表创建次数已用完",
	CodeDuplicateAction:  "重复操作",
	CodeServerError:      "服务器内部错误",
}

type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type PageData struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Items    any   `json:"items"`
}

func write(c *gin.Context, code int, message string, data any) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(http.StatusOK, Response{Code: code, Message: message, Data: data})
}

func Success(c *gin.Context, data any) {
	write(c, CodeSuccess, "", data)
}

func SuccessWithMessage(c *gin.Context, message string, data any) {
	write(c, CodeSuccess, message, data)
}

// SuccessPage 分页列表
func SuccessPage(c *gin.Context, total int64, page, pageSize int, items any) {
	write(c, CodeSuccess, "", PageData{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    items,
	})
}

// Attachment 直接返回文件内容，不走统一响应结构
func Attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, data)
}

// Error message 为空时使用错误码的默认消息
func Error(c *gin.Context, code int, message string) {
	write(c, code, message, nil)
}

func ErrorWithData(c *gin.Context, code int, message string, data any) {
	write(c, code, message, data)
}

func ParamError(c *gin.Context, message string) { Error(c, CodeParamError, message) }

func AuthError(c *gin.Context, message string) { Error(c, CodeAuthFailed, message) }

func PermissionError(c *gin.Context, message string) { Error(c, CodePermissionDenied, message) }

func NotFoundError(c *gin.Context, message string) { Error(c, CodeResourceNotFound, message) }

func DuplicateError(c *gin.Context, message string) { Error(c, CodeDuplicateAction, message) }

func ServerError(c *gin.Context, message string) { Error(c, CodeServerError, message) }

// QuotaExceeded data 携带当前用量与上限，供前端提示升级
func QuotaExceeded(c *gin.Context, message string, data any) {
	write(c, CodeQuotaExceeded, message, data)
}
