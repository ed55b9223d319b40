package service

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/chart_editor_server/config"
	"github.com/qs3c/chart_editor_server/internal/model"
	"github.com/qs3c/chart_editor_server/internal/model/dto"
	"github.com/qs3c/chart_editor_server/internal/pkg/logger"
	"github.com/qs3c/chart_editor_server/internal/repository"
)

var (
	ErrGalleryItemNotFound = errors.New("画廊条目不存在")
	ErrAlreadyFavorited    = errors.New("已收藏")
	ErrNotFavorited        = errors.New("未收藏")
)

// 画廊列表默认上限
const defaultGalleryLimit = 50

type GalleryService struct {
	galleryRepo  *repository.GalleryRepository
	favoriteRepo *repository.FavoriteRepository
	cfg          *config.Config
	logger       *zap.Logger
}

func NewGalleryService(
	galleryRepo *repository.GalleryRepository,
	favoriteRepo *repository.FavoriteRepository,
	cfg *config.Config,
	log *zap.Logger,
) *GalleryService {
	return &GalleryService{
		galleryRepo:  galleryRepo,
		favoriteRepo: favoriteRepo,
		cfg:          cfg,
		logger:       logger.Nop(log),
	}
}

// List 画廊列表，最新的在前
func (s *GalleryService) List(req *dto.GalleryListRequest) ([]*dto.GalleryItem, error) {
	limit := s.cfg.Gallery.ListLimit
	if limit <= 0 || limit > defaultGalleryLimit {
		limit = defaultGalleryLimit
	}

	items, err := s.galleryRepo.List(req.Category, req.Search, limit)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.GalleryItem, len(items))
	for i, item := range items {
		result[i] = buildGalleryItem(item)
	}
	return result, nil
}

// Get 画廊详情，浏览数 +1；userID 为空表示未登录
func (s *GalleryService) Get(itemID int64, userID *int64) (*dto.GalleryDetail, error) {
	item, err := s.getItem(itemID)
	if err != nil {
		return nil, err
	}

	if err := s.galleryRepo.IncrementViewCount(itemID); err != nil {
		s.logger.Warn("failed to increment view count", zap.Int64("item_id", itemID), zap.Error(err))
	} else {
		item.ViewCount++
	}

	detail := &dto.GalleryDetail{GalleryItem: *buildGalleryItem(item)}
	if item.Chart != nil {
		detail.Chart = buildChartDetail(item.Chart)
	}

	if userID != nil {
		favorited, err := s.favoriteRepo.Exists(*userID, itemID)
		if err != nil {
			return nil, err
		}
		detail.Favorited = favorited
	}
	return detail, nil
}

// Use 以画廊条目为模板，使用数 +1 并返回其图表
func (s *GalleryService) Use(itemID int64) (*dto.ChartDetail, error) {
	item, err := s.getItem(itemID)
	if err != nil {
		return nil, err
	}
	if err := s.galleryRepo.IncrementUseCount(itemID); err != nil {
		return nil, err
	}
	if item.Chart == nil {
		return nil, ErrChartNotFound
	}
	return buildChartDetail(item.Chart), nil
}

// Favorite 收藏
func (s *GalleryService) Favorite(userID, itemID int64) (*dto.FavoriteResponse, error) {
	item, err := s.getItem(itemID)
	if err != nil {
		return nil, err
	}

	exists, err := s.favoriteRepo.Exists(userID, itemID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyFavorited
	}

	if err := s.favoriteRepo.Create(&model.Favorite{UserID: userID, GalleryItemID: itemID}); err != nil {
		return nil, err
	}
	if err := s.galleryRepo.IncrementFavoriteCount(itemID, 1); err != nil {
		return nil, err
	}

	return &dto.FavoriteResponse{Favorited: true, FavoriteCount: item.FavoriteCount + 1}, nil
}

// Unfavorite 取消收藏
func (s *GalleryService) Unfavorite(userID, itemID int64) (*dto.FavoriteResponse, error) {
	item, err := s.getItem(itemID)
	if err != nil {
		return nil, err
	}

	removed, err := s.favoriteRepo.Delete(userID, itemID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, ErrNotFavorited
	}
	if err := s.galleryRepo.IncrementFavoriteCount(itemID, -1); err != nil {
		return nil, err
	}

	count := item.FavoriteCount - 1
	if count < 0 {
		count = 0
	}
	return &dto.FavoriteResponse{Favorited: false, FavoriteCount: count}, nil
}

func (s *GalleryService) getItem(itemID int64) (*model.GalleryItem, error) {
	item, err := s.galleryRepo.GetByID(itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGalleryItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func buildGalleryItem(item *model.GalleryItem) *dto.GalleryItem {
	result := &dto.GalleryItem{
		ID:              item.ID,
		Slug:            item.Slug,
		Title:           item.Title,
		Description:     item.Description,
		PreviewImageURL: item.PreviewImageURL,
		ChartID:         item.ChartID,
		Category:        item.Category,
		Tags:            []string(item.Tags),
		ViewCount:       item.ViewCount,
		UseCount:        item.UseCount,
		FavoriteCount:   item.FavoriteCount,
		CreatedAt:       item.CreatedAt.Format(time.RFC3339),
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}
	if item.Creator != nil {
		result.Creator = &dto.AuthorInfo{
			ID:        item.Creator.ID,
			Name:      item.Creator.Name,
			AvatarURL: item.Creator.AvatarURL,
		}
	}
	return result
}
