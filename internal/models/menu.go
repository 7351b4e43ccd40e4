package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Base carries the columns shared by every table. There is no soft delete:
// unique indexes must stop applying once a row is removed.
type Base struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MoneyPlaces is the number of fraction digits kept on every money field.
const MoneyPlaces = 2

// Money rounds d to the stored precision.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// Category groups menu items, e.g. "Soups" or "Drinks".
type Category struct {
	Base
	Name string `gorm:"size:250;not null" json:"name"`
	Slug string `gorm:"size:250;not null;unique_index" json:"slug"`
}

func (Category) TableName() string {
	return "categories"
}

// MenuItem represents a dish on the menu
type MenuItem struct {
	Base
	CategoryID  uint                `gorm:"not null;index" json:"category_id"`
	Name        string              `gorm:"size:250;not null" json:"name"`
	Slug        string              `gorm:"size:250;not null" json:"slug"`
	Weight      decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"weight"`
	Capacity    decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"capacity"`
	Price       decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"price"`
	Description *string             `gorm:"type:text" json:"description"`
	Image       *string             `gorm:"size:500" json:"image"`
}

func (MenuItem) TableName() string {
	return "menu_items"
}

// ValidateCategory validates a category
func ValidateCategory(c *Category) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("category name is required")
	}
	return validateSlug(c.Slug)
}

// ValidateMenuItem validates a menu item
func ValidateMenuItem(item *MenuItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("menu item name is required")
	}
	if item.CategoryID == 0 {
		return fmt.Errorf("menu item category is required")
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("menu item price must not be negative")
	}
	if item.Weight.Valid && item.Weight.Decimal.IsNegative() {
		return fmt.Errorf("menu item weight must not be negative")
	}
	if item.Capacity.Valid && item.Capacity.Decimal.IsNegative() {
		return fmt.Errorf("menu item capacity must not be negative")
	}
	return validateSlug(item.Slug)
}

func validateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	for _, r := range slug {
		ok := r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return fmt.Errorf("slug %q may only contain letters, digits, '-' and '_'", slug)
		}
	}
	return nil
}
