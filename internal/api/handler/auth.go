package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/chart_editor_server/internal/api/middleware"
	"github.com/qs3c/chart_editor_server/internal/model/dto"
	"github.com/qs3c/chart_editor_server/internal/pkg/response"
	"github.com/qs3c/chart_editor_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// authErrors 认证相关的业务错误，其余按 5000 处理
var authErrors = []struct {
	err     error
	respond func(*gin.Context, string)
}{
	{service.ErrEmailExists, response.DuplicateError},
	{service.ErrInvalidCredentials, response.AuthError},
}

func respondAuthError(c *gin.Context, err error) {
	for _, e := range authErrors {
		if errors.Is(err, e.err) {
			e.respond(c, err.Error())
			return
		}
	}
	response.ServerError(c, "")
}

// Register 邮箱注册，新账号为 free 档
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	response.SuccessWithMessage(c, "注册成功", resp)
}

// Login 邮箱密码登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	response.SuccessWithMessage(c, "登录成功", resp)
}

// Logout 令牌无状态，只清理服务端草稿会话
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	cleared, err := h.authService.Logout(c.Request.Context(), userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已退出登录", gin.H{"drafts_cleared": cleared})
}
