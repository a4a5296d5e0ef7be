package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Product is a catalog item managed through the back office.
// Slug is filled from Name on creation and may diverge afterwards.
type Product struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string     `gorm:"size:200;index" json:"name" form:"name"`
	Slug        string     `gorm:"size:200;uniqueIndex" json:"slug" form:"slug"`
	Description string     `gorm:"type:text" json:"description" form:"description"`
	IsInStock   bool       `gorm:"default:false;index" json:"is_in_stock" form:"is_in_stock"`
	ProductImg  string     `gorm:"size:1024" json:"product_img" form:"product_img"` // path relative to the media url, optional
	CreateDate  time.Time  `gorm:"autoCreateTime;index" json:"create_date"`
	UpdateDate  time.Time  `gorm:"autoUpdateTime;index" json:"update_date"`
	Categories  []Category `gorm:"many2many:product_categories;" json:"categories,omitempty"`
	Reviews     []Review   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"reviews,omitempty"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "products"
}

// HasImage reports whether an image is attached
func (p *Product) HasImage() bool {
	return p.ProductImg != ""
}

// Review belongs to exactly one product
type Review struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64     `gorm:"index;not null" json:"product_id" form:"product_id"`
	Author      string    `gorm:"size:100" json:"author" form:"author"`
	Content     string    `gorm:"type:text" json:"content" form:"content"`
	IsReleased  bool      `gorm:"default:false" json:"is_released" form:"is_released"`
	CreatedDate time.Time `gorm:"autoCreateTime;index" json:"created_date"`
}

// TableName Specify table name
func (Review) TableName() string {
	return "reviews"
}

// String is the list label of a review.
func (r Review) String() string {
	content := r.Content
	if utf8.RuneCountInString(content) > 40 {
		content = string([]rune(content)[:40]) + "..."
	}
	if r.Author == "" {
		return content
	}
	return fmt.Sprintf("%s: %s", r.Author, content)
}

// Category is a plain named grouping of products
type Category struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:200;index" json:"name" form:"name"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "categories"
}
