package main

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/gosimple/slug"
	"github.com/spf13/cobra"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/chart_editor_server/internal/chartspec"
	"github.com/qs3c/chart_editor_server/internal/model"
	"github.com/qs3c/chart_editor_server/internal/repository"
)

const defaultTemplateOwner = "templates@chart-editor.local"

// galleryTemplate 画廊内置模板
type galleryTemplate struct {
	Title       string
	Description string
	Mark        chartspec.Object
	Encoding    map[string]chartspec.Object
	Tags        []string
}

var builtinTemplates = []galleryTemplate{
	{
		Title:       "Bar Chart",
		Description: "Compare values across categories.",
		Mark:        chartspec.Object{"type": "bar", "cornerRadiusEnd": 4},
		Tags:        []string{"basic", "comparison"},
	},
	{
		Title:       "Line Chart",
		Description: "Show a trend over time.",
		Mark:        chartspec.Object{"type": "line", "point": true},
		Encoding: map[string]chartspec.Object{
			"x": {"field": "date", "type": "temporal", "axis": map[string]any{"title": "Date"}},
		},
		Tags: []string{"basic", "trend"},
	},
	{
		Title:       "Area Chart",
		Description: "Show volume over time.",
		Mark:        chartspec.Object{"type": "area", "opacity": 0.7},
		Encoding: map[string]chartspec.Object{
			"x": {"field": "date", "type": "temporal", "axis": map[string]any{"title": "Date"}},
		},
		Tags: []string{"trend"},
	},
	{
		Title:       "Scatter Plot",
		Description: "Relate two measures.",
		Mark:        chartspec.Object{"type": "point", "filled": true},
		Encoding: map[string]chartspec.Object{
			"x": {"field": "x", "type": "quantitative"},
			"y": {"field": "y", "type": "quantitative"},
		},
		Tags: []string{"correlation"},
	},
}

// seedResult 种子数据写入情况
type seedResult struct {
	Created int
	Skipped int
}

func newSeedCmd(current func() *app) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Publish the built-in chart templates to the gallery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := seedTemplates(current().db, owner, builtinTemplates)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "templates created: %d, skipped: %d\n", res.Created, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", defaultTemplateOwner, "email of the account that owns the templates")
	return cmd
}

// seedTemplates 幂等：slug 已存在的模板跳过
func seedTemplates(db *gorm.DB, ownerEmail string, templates []galleryTemplate) (*seedResult, error) {
	res := &seedResult{}
	err := db.Transaction(func(tx *gorm.DB) error {
		owner, err := templateOwner(tx, ownerEmail)
		if err != nil {
			return err
		}

		chartRepo := repository.NewChartRepository(tx)
		galleryRepo := repository.NewGalleryRepository(tx)

		for _, tpl := range templates {
			itemSlug := "template-" + slug.Make(tpl.Title)
			if _, err := galleryRepo.GetBySlug(itemSlug); err == nil {
				res.Skipped++
				continue
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			spec, err := tpl.spec()
			if err != nil {
				return fmt.Errorf("template %q: %w", tpl.Title, err)
			}
			data, err := json.Marshal(spec)
			if err != nil {
				return err
			}

			chart := &model.Chart{
				UserID:             owner.ID,
				Name:               tpl.Title,
				Description:        tpl.Description,
				Spec:               datatypes.JSON(data),
				ChartType:          spec.MarkType(),
				IsPublic:           true,
				PublishedToGallery: true,
			}
			if err := chartRepo.Create(chart); err != nil {
				return err
			}

			if err := galleryRepo.Create(&model.GalleryItem{
				Slug:        itemSlug,
				Title:       tpl.Title,
				Description: tpl.Description,
				ChartID:     chart.ID,
				CreatorID:   owner.ID,
				Category:    model.CategoryTemplate,
				Tags:        model.StringArray(tpl.Tags),
			}); err != nil {
				return err
			}
			res.Created++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (tpl galleryTemplate) spec() (*chartspec.Spec, error) {
	spec, err := chartspec.MergeMark(chartspec.Default(), tpl.Mark)
	if err != nil {
		return nil, err
	}
	for channel, binding := range tpl.Encoding {
		if spec, err = chartspec.MergeEncoding(spec, channel, binding); err != nil {
			return nil, err
		}
	}
	return spec, nil
}

// templateOwner 查找或创建模板所属账号，该账号没有可用密码
func templateOwner(db *gorm.DB, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	users := repository.NewUserRepository(db)

	user, err := users.GetByEmail(email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = &model.User{
		Email:        email,
		Name:         "Chart Templates",
		PasswordHash: "!",
		Tier:         model.TierPremium,
	}
	if err := users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}
