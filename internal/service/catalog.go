package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/apperrors"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/pageza/foodgram/backend/internal/validation"
)

// CatalogService serves the read-mostly tag and ingredient catalogs.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// ImportStats reports the outcome of an ingredient import.
type ImportStats struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

func (s *CatalogService) ListTags(ctx context.Context) ([]types.TagView, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	views := make([]types.TagView, 0, len(tags))
	for _, t := range tags {
		views = append(views, tagView(t))
	}
	return views, nil
}

func (s *CatalogService) GetTag(ctx context.Context, id uint) (*types.TagView, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("tag not found")
		}
		return nil, fmt.Errorf("failed to load tag: %w", err)
	}
	v := tagView(tag)
	return &v, nil
}

// CreateTag adds a tag. Tags are otherwise managed by seeding and
// administration.
func (s *CatalogService) CreateTag(ctx context.Context, req *types.TagRequest) (*types.TagView, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	tag := models.Tag{Name: req.Name, Slug: req.Slug}
	if req.Color != "" {
		color := strings.ToUpper(req.Color)
		tag.Color = &color
	}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("a tag with that name, color or slug already exists")
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	v := tagView(tag)
	return &v, nil
}

// ListIngredients returns ingredients whose name starts with namePrefix,
// case-insensitively, ordered by name.
func (s *CatalogService) ListIngredients(ctx context.Context, namePrefix string) ([]types.IngredientView, error) {
	q := s.db.WithContext(ctx).Order("name").Order("measurement_unit")
	if namePrefix != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, escapeLike(strings.ToLower(namePrefix))+"%")
	}
	var ingredients []models.Ingredient
	if err := q.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	views := make([]types.IngredientView, 0, len(ingredients))
	for _, i := range ingredients {
		views = append(views, ingredientView(i))
	}
	return views, nil
}

func (s *CatalogService) GetIngredient(ctx context.Context, id uint) (*types.IngredientView, error) {
	var ing models.Ingredient
	if err := s.db.WithContext(ctx).First(&ing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("ingredient not found")
		}
		return nil, fmt.Errorf("failed to load ingredient: %w", err)
	}
	v := ingredientView(ing)
	return &v, nil
}

// ImportIngredients reads "name,measurement_unit" rows and inserts the pairs
// that are not in the catalog yet. The import is all-or-nothing.
func (s *CatalogService) ImportIngredients(ctx context.Context, r io.Reader) (*ImportStats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	stats := &ImportStats{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read csv: %w", err)
			}
			line, _ := reader.FieldPos(0)
			if len(record) < 2 {
				return fmt.Errorf("line %d: expected name and measurement unit, got %d fields", line, len(record))
			}

			name := strings.TrimSpace(record[0])
			unit := strings.TrimSpace(record[1])
			if name == "" || unit == "" {
				return fmt.Errorf("line %d: name and measurement unit must not be empty", line)
			}

			ing := models.Ingredient{Name: name, MeasurementUnit: unit}
			res := tx.Where(models.Ingredient{Name: name, MeasurementUnit: unit}).FirstOrCreate(&ing)
			if res.Error != nil {
				return fmt.Errorf("line %d: failed to save ingredient: %w", line, res.Error)
			}
			if res.RowsAffected > 0 {
				stats.Created++
			} else {
				stats.Skipped++
			}
		}
	})
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Int("created", stats.Created).
		Int("skipped", stats.Skipped).
		Msg("ingredients imported")
	return stats, nil
}

func tagView(t models.Tag) types.TagView {
	return types.TagView{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func ingredientView(i models.Ingredient) types.IngredientView {
	return types.IngredientView{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
