package service

import (
	"strings"

	"github.com/qs3c/chart_editor_server/internal/model/dto"
	"github.com/qs3c/chart_editor_server/internal/repository"
)

type UserService struct {
	userRepo     *repository.UserRepository
	quotaService *QuotaService
}

func NewUserService(userRepo *repository.UserRepository, quotaService *QuotaService) *UserService {
	return &UserService{
		userRepo:     userRepo,
		quotaService: quotaService,
	}
}

// GetProfile 获取用户详情，包含配额
func (s *UserService) GetProfile(userID int64) (*dto.UserInfo, error) {
	user, err := s.quotaService.getUser(userID)
	if err != nil {
		return nil, err
	}

	info := buildUserInfo(user)
	quota, err := s.quotaService.quotaInfo(user)
	if err != nil {
		return nil, err
	}
	info.QuotaInfo = quota
	return info, nil
}

// UpdateProfile 更新用户信息
func (s *UserService) UpdateProfile(userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.quotaService.getUser(userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}

	if err := s.userRepo.UpdateFields(userID, map[string]interface{}{
		"name":       user.Name,
		"avatar_url": user.AvatarURL,
	}); err != nil {
		return nil, err
	}

	return s.GetProfile(userID)
}
