package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/chart_editor_server/config"
	"github.com/qs3c/chart_editor_server/internal/chartspec"
	"github.com/qs3c/chart_editor_server/internal/model"
	"github.com/qs3c/chart_editor_server/internal/model/dto"
	"github.com/qs3c/chart_editor_server/internal/pkg/draft"
	"github.com/qs3c/chart_editor_server/internal/pkg/export"
	"github.com/qs3c/chart_editor_server/internal/pkg/logger"
	"github.com/qs3c/chart_editor_server/internal/pkg/oss"
	"github.com/qs3c/chart_editor_server/internal/pkg/pubsub"
	"github.com/qs3c/chart_editor_server/internal/pkg/queue"
	"github.com/qs3c/chart_editor_server/internal/repository"
)

var (
	ErrChartNotFound      = errors.New("图表不存在")
	ErrChartPermission    = errors.New("无权操作此图表")
	ErrAlreadyPublished   = errors.New("图表已发布到画廊")
	ErrStorageUnavailable = errors.New("对象存储未配置")
	ErrUnsupportedImage   = errors.New("不支持的图片格式")
	ErrPreviewTooLarge    = errors.New("预览图不能超过 5MB")
)

// 预览图大小上限
const MaxPreviewSize = 5 << 20

// ActivityRecorder 记录用户活动
type ActivityRecorder interface {
	Push(ctx context.Context, msg *queue.ActivityMessage) error
}

// EventPublisher 推送图表事件
type EventPublisher interface {
	Publish(ctx context.Context, event *pubsub.ChartEvent) error
}

// PreviewStorage 预览图存储
type PreviewStorage interface {
	UploadPreview(chartID int64, data []byte, ext string) (string, error)
	DeleteByURL(url string) error
}

type ChartService struct {
	chartRepo    *repository.ChartRepository
	galleryRepo  *repository.GalleryRepository
	quotaService *QuotaService
	drafts       *draft.Store
	storage      PreviewStorage
	activity     ActivityRecorder
	events       EventPublisher
	cfg          *config.Config
	logger       *zap.Logger
}

func NewChartService(
	chartRepo *repository.ChartRepository,
	galleryRepo *repository.GalleryRepository,
	quotaService *QuotaService,
	drafts *draft.Store,
	storage PreviewStorage,
	activity ActivityRecorder,
	events EventPublisher,
	cfg *config.Config,
	log *zap.Logger,
) *ChartService {
	return &ChartService{
		chartRepo:    chartRepo,
		galleryRepo:  galleryRepo,
		quotaService: quotaService,
		drafts:       drafts,
		storage:      storage,
		activity:     activity,
		events:       events,
		cfg:          cfg,
		logger:       logger.Nop(log),
	}
}

// Create 创建图表
//
// 先检查配额，写库成功后再扣减；扣减失败不回滚图表。
func (s *ChartService) Create(ctx context.Context, userID int64, req *dto.CreateChartRequest) (*dto.ChartDetail, error) {
	spec := chartspec.Default()
	if len(req.Spec) > 0 {
		parsed, err := parseSpec(req.Spec)
		if err != nil {
			return nil, err
		}
		spec = parsed
	}

	chart := &model.Chart{
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	if err := setSpec(chart, spec); err != nil {
		return nil, err
	}

	if err := s.createMetered(userID, chart); err != nil {
		return nil, err
	}

	s.record(ctx, userID, model.ActionChartCreated, fmt.Sprintf("创建图表「%s」", chart.Name), map[string]any{
		"chart_id":   chart.ID,
		"chart_type": chart.ChartType,
	})
	s.publish(ctx, &pubsub.ChartEvent{Type: pubsub.EventChartCreated, UserID: userID, ChartID: chart.ID, Name: chart.Name})

	return buildChartDetail(chart), nil
}

// Get 获取图表详情，所有者或公开图表可见
func (s *ChartService) Get(userID, chartID int64) (*dto.ChartDetail, error) {
	chart, err := s.getChart(chartID)
	if err != nil {
		return nil, err
	}
	if chart.UserID != userID && !chart.IsPublic {
		return nil, ErrChartPermission
	}
	return buildChartDetail(chart), nil
}

// List 获取自己的图表列表
func (s *ChartService) List(userID int64, req *dto.ChartListRequest) ([]*dto.ChartListItem, int64, error) {
	charts, total, err := s.chartRepo.ListByUserID(userID, req.Page, req.PageSize, req.Search)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.ChartListItem, len(charts))
	for i, c := range charts {
		items[i] = &dto.ChartListItem{
			ID:                 c.ID,
			Name:               c.Name,
			ChartType:          c.ChartType,
			IsPublic:           c.IsPublic,
			PublishedToGallery: c.PublishedToGallery,
			PreviewImageURL:    c.PreviewImageURL,
			CreatedAt:          c.CreatedAt.Format(time.RFC3339),
			UpdatedAt:          c.UpdatedAt.Format(time.RFC3339),
		}
	}
	return items, total, nil
}

// Update 更新图表
//
// Spec 先整体替换已保存的文档，Delta 再在其上应用，结果整体写回。
func (s *ChartService) Update(ctx context.Context, userID, chartID int64, req *dto.UpdateChartRequest) (*dto.ChartDetail, error) {
	chart, err := s.getOwnedChart(userID, chartID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		chart.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		chart.Description = *req.Description
	}
	if req.IsPublic != nil {
		chart.IsPublic = *req.IsPublic
	}

	if len(req.Spec) > 0 || !req.Delta.Empty() {
		var spec *chartspec.Spec
		if len(req.Spec) > 0 {
			spec, err = parseSpec(req.Spec)
		} else {
			spec, err = parseSpec(chart.Spec)
		}
		if err != nil {
			return nil, err
		}
		if !req.Delta.Empty() {
			if spec, err = chartspec.Apply(spec, req.Delta); err != nil {
				return nil, err
			}
		}
		if err := setSpec(chart, spec); err != nil {
			return nil, err
		}
	}

	if err := s.chartRepo.Update(chart); err != nil {
		return nil, err
	}

	s.record(ctx, userID, model.ActionChartUpdated, fmt.Sprintf("更新图表「%s」", chart.Name), map[string]any{"chart_id": chart.ID})
	s.publish(ctx, &pubsub.ChartEvent{Type: pubsub.EventChartUpdated, UserID: userID, ChartID: chart.ID, Name: chart.Name})

	return buildChartDetail(chart), nil
}

// Delete 删除图表，同时移除画廊条目和草稿
func (s *ChartService) Delete(ctx context.Context, userID, chartID int64) error {
	chart, err := s.getOwnedChart(userID, chartID)
	if err != nil {
		return err
	}

	if err := s.chartRepo.Delete(chartID); err != nil {
		return err
	}

	if _, err := s.drafts.Delete(ctx, userID, chartID); err != nil {
		s.logger.Warn("failed to drop draft of deleted chart", zap.Int64("chart_id", chartID), zap.Error(err))
	}
	if chart.PreviewImageURL != "" && s.storage != nil {
		if err := s.storage.DeleteByURL(chart.PreviewImageURL); err != nil {
			s.logger.Warn("failed to delete preview image", zap.String("url", chart.PreviewImageURL), zap.Error(err))
		}
	}

	s.record(ctx, userID, model.ActionChartDeleted, fmt.Sprintf("删除图表「%s」", chart.Name), map[string]any{"chart_id": chartID})
	s.publish(ctx, &pubsub.ChartEvent{Type: pubsub.EventChartDeleted, UserID: userID, ChartID: chartID, Name: chart.Name})
	return nil
}

// Duplicate 复制图表，规格原样保留，同样占用创建配额
func (s *ChartService) Duplicate(ctx context.Context, userID, chartID int64) (*dto.ChartDetail, error) {
	source, err := s.getChart(chartID)
	if err != nil {
		return nil, err
	}
	if source.UserID != userID && !source.IsPublic {
		return nil, ErrChartPermission
	}

	chart := &model.Chart{
		UserID:      userID,
		Name:        source.Name + " (copy)",
		Description: source.Description,
		Spec:        append(datatypes.JSON(nil), source.Spec...),
		ChartType:   source.ChartType,
	}

	if err := s.createMetered(userID, chart); err != nil {
		return nil, err
	}

	s.record(ctx, userID, model.ActionChartDuplicated, fmt.Sprintf("复制图表「%s」", source.Name), map[string]any{
		"chart_id":  chart.ID,
		"source_id": source.ID,
	})
	s.publish(ctx, &pubsub.ChartEvent{Type: pubsub.EventChartCreated, UserID: userID, ChartID: chart.ID, Name: chart.Name})

	return buildChartDetail(chart), nil
}

// Publish 发布到画廊，图表同时设为公开
func (s *ChartService) Publish(ctx context.Context, userID, chartID int64, req *dto.PublishChartRequest) (*dto.GalleryItem, error) {
	chart, err := s.getOwnedChart(userID, chartID)
	if err != nil {
		return nil, err
	}

	exists, err := s.galleryRepo.ExistsForChart(chartID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyPublished
	}

	tags := make(model.StringArray, 0, len(req.Tags))
	for _, tag := range req.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	item := &model.GalleryItem{
		Slug:            gallerySlug(req.Title),
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		PreviewImageURL: chart.PreviewImageURL,
		ChartID:         chart.ID,
		CreatorID:       userID,
		Category:        model.CategoryUserCreated,
		Tags:            tags,
	}
	if err := s.galleryRepo.Publish(item); err != nil {
		return nil, err
	}

	s.record(ctx, userID, model.ActionChartPublished, fmt.Sprintf("发布图表「%s」", item.Title), map[string]any{
		"chart_id":        chart.ID,
		"gallery_item_id": item.ID,
		"slug":            item.Slug,
	})
	s.publish(ctx, &pubsub.ChartEvent{Type: pubsub.EventChartPublished, UserID: userID, ChartID: chart.ID, Name: item.Title})

	return buildGalleryItem(item), nil
}

// UploadPreview 上传预览图并替换旧图
func (s *ChartService) UploadPreview(userID, chartID int64, file io.Reader, filename string) (string, error) {
	if s.storage == nil {
		return "", ErrStorageUnavailable
	}
	chart, err := s.getOwnedChart(userID, chartID)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if oss.ContentType(ext) == "" {
		return "", ErrUnsupportedImage
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxPreviewSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxPreviewSize {
		return "", ErrPreviewTooLarge
	}

	url, err := s.storage.UploadPreview(chartID, data, ext)
	if err != nil {
		return "", err
	}

	if err := s.chartRepo.UpdateFields(chartID, map[string]interface{}{"preview_image_url": url}); err != nil {
		return "", err
	}
	if chart.PreviewImageURL != "" && chart.PreviewImageURL != url {
		if err := s.storage.DeleteByURL(chart.PreviewImageURL); err != nil {
			s.logger.Warn("failed to delete old preview image", zap.String("url", chart.PreviewImageURL), zap.Error(err))
		}
	}
	return url, nil
}

// Export 导出用户全部图表为 xlsx
func (s *ChartService) Export(userID int64) ([]byte, error) {
	charts, err := s.chartRepo.ListAllByUserID(userID)
	if err != nil {
		return nil, err
	}
	return export.ChartsWorkbook(charts)
}

// createMetered 在配额允许时写入新图表
func (s *ChartService) createMetered(userID int64, chart *model.Chart) error {
	if s.cfg.Quota.Strict {
		d, err := s.quotaService.Reserve(userID)
		if err != nil {
			return err
		}
		if !d.Allowed {
			return &QuotaExceededError{Decision: *d}
		}
		if err := s.chartRepo.Create(chart); err != nil {
			if d.Metered() {
				if rerr := s.quotaService.Release(userID); rerr != nil {
					s.logger.Warn("failed to release reserved quota", zap.Int64("user_id", userID), zap.Error(rerr))
				}
			}
			return err
		}
		return nil
	}

	d, err := s.quotaService.CheckQuota(userID)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &QuotaExceededError{Decision: *d}
	}
	if err := s.chartRepo.Create(chart); err != nil {
		return err
	}
	if d.Metered() {
		_ = s.quotaService.Consume(userID)
	}
	return nil
}

func (s *ChartService) getChart(chartID int64) (*model.Chart, error) {
	chart, err := s.chartRepo.GetByID(chartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChartNotFound
		}
		return nil, err
	}
	return chart, nil
}

func (s *ChartService) getOwnedChart(userID, chartID int64) (*model.Chart, error) {
	chart, err := s.getChart(chartID)
	if err != nil {
		return nil, err
	}
	if chart.UserID != userID {
		return nil, ErrChartPermission
	}
	return chart, nil
}

func (s *ChartService) record(ctx context.Context, userID int64, action, description string, metadata map[string]any) {
	if s.activity == nil {
		return
	}
	msg := &queue.ActivityMessage{
		UserID:      userID,
		Action:      action,
		Description: description,
		Metadata:    metadata,
	}
	if err := s.activity.Push(ctx, msg); err != nil {
		s.logger.Warn("failed to record activity", zap.String("action", action), zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *ChartService) publish(ctx context.Context, event *pubsub.ChartEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish chart event", zap.String("type", event.Type), zap.Int64("chart_id", event.ChartID), zap.Error(err))
	}
}

// parseSpec 解析图表规格，所有解析错误都归为校验错误
func parseSpec(data []byte) (*chartspec.Spec, error) {
	spec, err := chartspec.Parse(data)
	if err != nil {
		var ve *chartspec.ValidationError
		if errors.As(err, &ve) {
			return nil, err
		}
		return nil, &chartspec.ValidationError{Field: "spec", Reason: err.Error()}
	}
	return spec, nil
}

func setSpec(chart *model.Chart, spec *chartspec.Spec) error {
	data, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	chart.Spec = datatypes.JSON(data)
	chart.ChartType = spec.MarkType()
	return nil
}

func gallerySlug(title string) string {
	base := slug.Make(title)
	suffix := uuid.NewString()[:8]
	if base == "" {
		return "chart-" + suffix
	}
	return base + "-" + suffix
}

func buildChartDetail(chart *model.Chart) *dto.ChartDetail {
	return &dto.ChartDetail{
		ID:                 chart.ID,
		UserID:             chart.UserID,
		Name:               chart.Name,
		Description:        chart.Description,
		Spec:               json.RawMessage(chart.Spec),
		ChartType:          chart.ChartType,
		IsPublic:           chart.IsPublic,
		PublishedToGallery: chart.PublishedToGallery,
		PreviewImageURL:    chart.PreviewImageURL,
		CreatedAt:          chart.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          chart.UpdatedAt.Format(time.RFC3339),
	}
}
