package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MediaURL is the public prefix under which uploaded image files are served.
const MediaURL = "/media/"

type FoodItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"size:200;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Category    string          `json:"category" gorm:"size:50;index"`
	ImageFile   string          `json:"image_file,omitempty" gorm:"column:image;size:255"`
	ImageURL    *string         `json:"image_url" gorm:"size:500"`
	Image       *string         `json:"image" gorm:"-"`
	Available   bool            `json:"available" gorm:"not null;default:true;index"`
	OrderItems  []OrderItem     `json:"-" gorm:"foreignKey:FoodItemID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ResolveImage picks the authoritative image reference. An external URL wins
// over an uploaded file.
func (f *FoodItem) ResolveImage() *string {
	if f.ImageURL != nil && *f.ImageURL != "" {
		url := *f.ImageURL
		return &url
	}
	if f.ImageFile != "" {
		path := MediaURL + f.ImageFile
		return &path
	}
	return nil
}

func (f *FoodItem) AfterFind(tx *gorm.DB) error {
	f.Image = f.ResolveImage()
	return nil
}

func (f *FoodItem) AfterSave(tx *gorm.DB) error {
	f.Image = f.ResolveImage()
	return nil
}
