package services

import (
	"context"
	"strings"

	"feasto-api/apperr"
	"feasto-api/models"
	"feasto-api/policy"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type FoodService struct {
	db     *gorm.DB
	policy *policy.Policy
	log    *logrus.Logger
}

func NewFoodService(db *gorm.DB, p *policy.Policy, log *logrus.Logger) *FoodService {
	return &FoodService{db: db, policy: p, log: log}
}

type FoodFilter struct {
	// Available is nil when the caller did not filter on availability.
	Available *bool
	Category  string
}

// FoodInput is used for create (all required fields set) and partial update
// (nil means unchanged).
type FoodInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
	ImageFile   *string
	ImageURL    *string
	Available   *bool
}

func (s *FoodService) List(ctx context.Context, caller policy.Caller, filter FoodFilter) ([]models.FoodItem, error) {
	if err := s.policy.Authorize(policy.FoodRead, caller); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Order("created_at desc, id desc")
	if filter.Available != nil {
		q = q.Where("available = ?", *filter.Available)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	items := []models.FoodItem{}
	if err := q.Find(&items).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

func (s *FoodService) Get(ctx context.Context, caller policy.Caller, id uint) (*models.FoodItem, error) {
	if err := s.policy.Authorize(policy.FoodRead, caller); err != nil {
		return nil, err
	}
	var item models.FoodItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, apperr.FromDB(err, "Food item")
	}
	return &item, nil
}

func (s *FoodService) Create(ctx context.Context, caller policy.Caller, in FoodInput) (*models.FoodItem, error) {
	if err := s.policy.Authorize(policy.FoodWrite, caller); err != nil {
		return nil, err
	}
	fields := map[string]string{}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		fields["name"] = "This field is required."
	}
	if in.Description == nil {
		fields["description"] = "This field is required."
	}
	if in.Price == nil {
		fields["price"] = "This field is required."
	}
	if in.Category == nil || strings.TrimSpace(*in.Category) == "" {
		fields["category"] = "This field is required."
	}
	validateFood(in, fields)
	if len(fields) > 0 {
		return nil, apperr.Validation("Invalid food item", fields)
	}

	item := models.FoodItem{
		Name:        *in.Name,
		Description: *in.Description,
		Price:       in.Price.Round(2),
		Category:    *in.Category,
		ImageURL:    in.ImageURL,
		Available:   true,
	}
	if in.ImageFile != nil {
		item.ImageFile = *in.ImageFile
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		// A bool false is the zero value and would be replaced by the column default.
		if in.Available != nil && !*in.Available {
			return tx.Model(&item).Update("available", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.WithFields(logrus.Fields{"food_id": item.ID, "name": item.Name}).Info("food item created")
	return s.Get(ctx, caller, item.ID)
}

func (s *FoodService) Update(ctx context.Context, caller policy.Caller, id uint, in FoodInput) (*models.FoodItem, error) {
	if err := s.policy.Authorize(policy.FoodWrite, caller); err != nil {
		return nil, err
	}
	item, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]string{}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		fields["name"] = "This field may not be blank."
	}
	if in.Category != nil && strings.TrimSpace(*in.Category) == "" {
		fields["category"] = "This field may not be blank."
	}
	validateFood(in, fields)
	if len(fields) > 0 {
		return nil, apperr.Validation("Invalid food item", fields)
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Price != nil {
		updates["price"] = in.Price.Round(2)
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if in.ImageFile != nil {
		updates["image"] = *in.ImageFile
	}
	if in.ImageURL != nil {
		updates["image_url"] = *in.ImageURL
	}
	if in.Available != nil {
		updates["available"] = *in.Available
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
			return nil, apperr.Internal(err)
		}
	}
	return s.Get(ctx, caller, id)
}

func validateFood(in FoodInput, fields map[string]string) {
	if in.Price != nil {
		if in.Price.IsNegative() {
			fields["price"] = "Ensure this value is greater than or equal to 0."
		} else if in.Price.GreaterThanOrEqual(decimal.New(1, 8)) {
			fields["price"] = "Ensure that there are no more than 10 digits in total."
		}
	}
	if in.Category != nil && len(*in.Category) > 50 {
		fields["category"] = "Ensure this field has no more than 50 characters."
	}
	if in.ImageURL != nil && *in.ImageURL != "" &&
		!strings.HasPrefix(*in.ImageURL, "http://") && !strings.HasPrefix(*in.ImageURL, "https://") {
		fields["image_url"] = "Enter a valid URL."
	}
}

// Delete removes the item together with every order line that references it.
func (s *FoodService) Delete(ctx context.Context, caller policy.Caller, id uint) error {
	if err := s.policy.Authorize(policy.FoodWrite, caller); err != nil {
		return err
	}
	item, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("food_item_id = ?", item.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(item).Error
	})
	if err != nil {
		return apperr.Internal(err)
	}
	s.log.WithField("food_id", item.ID).Info("food item deleted")
	return nil
}
