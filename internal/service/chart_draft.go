package service

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"

	"github.com/qs3c/chart_editor_server/internal/chartspec"
	"github.com/qs3c/chart_editor_server/internal/model"
	"github.com/qs3c/chart_editor_server/internal/model/dto"
	"github.com/qs3c/chart_editor_server/internal/pkg/draft"
	"github.com/qs3c/chart_editor_server/internal/pkg/pubsub"
)

var ErrDraftNotFound = errors.New("草稿不存在或已过期")

// OpenDraft 打开编辑会话
//
// 已有会话时直接返回（刷新过期时间），否则以已保存的规格为起点。
func (s *ChartService) OpenDraft(ctx context.Context, userID, chartID int64) (*dto.DraftResponse, error) {
	chart, err := s.getOwnedChart(userID, chartID)
	if err != nil {
		return nil, err
	}

	d, err := s.drafts.Get(ctx, userID, chartID)
	switch {
	case errors.Is(err, draft.ErrNotFound):
		spec, err := parseSpec(chart.Spec)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(spec)
		if err != nil {
			return nil, err
		}
		d = &draft.Draft{UserID: userID, ChartID: chartID, Spec: data}
	case err != nil:
		return nil, err
	}

	if err := s.drafts.Put(ctx, d); err != nil {
		return nil, err
	}
	return buildDraftResponse(d), nil
}

// PatchDraft 在草稿上应用一组修改，返回新的预览规格
func (s *ChartService) PatchDraft(ctx context.Context, userID, chartID int64, delta *chartspec.Delta) (*dto.DraftResponse, error) {
	d, err := s.getDraft(ctx, userID, chartID)
	if err != nil {
		return nil, err
	}

	spec, err := parseSpec(d.Spec)
	if err != nil {
		return nil, err
	}
	if spec, err = chartspec.Apply(spec, delta); err != nil {
		return nil, err
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}

	d.Spec = data
	d.Revision++
	if err := s.drafts.Put(ctx, d); err != nil {
		return nil, err
	}

	s.publish(ctx, &pubsub.ChartEvent{Type: pubsub.EventDraftUpdated, UserID: userID, ChartID: chartID})
	return buildDraftResponse(d), nil
}

// SaveDraft 将草稿整体写回图表并关闭会话
func (s *ChartService) SaveDraft(ctx context.Context, userID, chartID int64) (*dto.ChartDetail, error) {
	chart, err := s.getOwnedChart(userID, chartID)
	if err != nil {
		return nil, err
	}
	d, err := s.getDraft(ctx, userID, chartID)
	if err != nil {
		return nil, err
	}

	spec, err := parseSpec(d.Spec)
	if err != nil {
		return nil, err
	}
	if err := setSpec(chart, spec); err != nil {
		return nil, err
	}
	if err := s.chartRepo.Update(chart); err != nil {
		return nil, err
	}
	if _, err := s.drafts.Delete(ctx, userID, chartID); err != nil {
		return nil, err
	}

	s.record(ctx, userID, model.ActionChartUpdated, "保存草稿「"+chart.Name+"」", map[string]any{
		"chart_id": chart.ID,
		"revision": d.Revision,
	})
	s.publish(ctx, &pubsub.ChartEvent{Type: pubsub.EventChartUpdated, UserID: userID, ChartID: chart.ID, Name: chart.Name})

	return buildChartDetail(chart), nil
}

// DiscardDraft 丢弃草稿
func (s *ChartService) DiscardDraft(ctx context.Context, userID, chartID int64) error {
	if _, err := s.getOwnedChart(userID, chartID); err != nil {
		return err
	}
	existed, err := s.drafts.Delete(ctx, userID, chartID)
	if err != nil {
		return err
	}
	if !existed {
		return ErrDraftNotFound
	}
	return nil
}

func (s *ChartService) getDraft(ctx context.Context, userID, chartID int64) (*draft.Draft, error) {
	d, err := s.drafts.Get(ctx, userID, chartID)
	if err != nil {
		if errors.Is(err, draft.ErrNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	return d, nil
}

func buildDraftResponse(d *draft.Draft) *dto.DraftResponse {
	return &dto.DraftResponse{
		ChartID:   d.ChartID,
		Spec:      d.Spec,
		Revision:  d.Revision,
		ExpiresAt: d.ExpiresAt.Format(time.RFC3339),
	}
}
