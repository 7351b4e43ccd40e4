package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinzhu/gorm"

	"cafe/internal/access"
	"cafe/internal/apperr"
	"cafe/internal/cache"
	"cafe/internal/database"
	"cafe/internal/models"
)

const categoriesKey = "categories"

func menuKey(categoryID uint) string {
	return fmt.Sprintf("menu:%d", categoryID)
}

// Catalog is the store of categories and menu items. Reads are public and
// served cache-aside; writes invalidate the affected keys.
type Catalog struct {
	Deps
	cache cache.Cache
}

func NewCatalog(deps Deps, c cache.Cache) *Catalog {
	if c == nil {
		c = cache.Nop{}
	}
	return &Catalog{Deps: deps, cache: c}
}

// ListCategories returns every category ordered by name.
func (s *Catalog) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if s.cached(ctx, categoriesKey, &categories) {
		return categories, nil
	}

	if err := s.DB.Order("name").Find(&categories).Error; err != nil {
		return nil, apperr.Internal("list_categories", err)
	}
	s.store(ctx, categoriesKey, categories)
	return categories, nil
}

func (s *Catalog) CreateCategory(ctx context.Context, in models.Category) (*models.Category, error) {
	const op = "create_category"
	if err := s.Gate.Require(ctx, access.CategoryCreate); err != nil {
		return nil, err
	}

	category := models.Category{Name: strings.TrimSpace(in.Name), Slug: in.Slug}
	if err := models.ValidateCategory(&category); err != nil {
		return nil, apperr.Validation(op, err.Error())
	}

	if err := s.DB.Create(&category).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Conflict(op, fmt.Sprintf("category slug %q already exists", category.Slug))
		}
		return nil, apperr.Internal(op, err)
	}

	s.invalidate(ctx, categoriesKey)
	return &category, nil
}

// DeleteCategory removes a category together with its menu items. It is
// refused while any of those items sits on an order.
func (s *Catalog) DeleteCategory(ctx context.Context, id uint) error {
	const op = "delete_category"
	if err := s.Gate.Require(ctx, access.CategoryDelete); err != nil {
		return err
	}

	err := database.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, id).Error; err != nil {
			return storeErr(op, "category", id, err)
		}

		var used int
		err := tx.Model(&models.OrderItem{}).
			Joins("JOIN menu_items ON menu_items.id = order_items.menu_item_id").
			Where("menu_items.category_id = ?", id).
			Count(&used).Error
		if err != nil {
			return apperr.Internal(op, err)
		}
		if used > 0 {
			return apperr.Conflict(op, "category has menu items on orders")
		}

		if err := tx.Where("category_id = ?", id).Delete(&models.MenuItem{}).Error; err != nil {
			return apperr.Internal(op, err)
		}
		if err := tx.Delete(&category).Error; err != nil {
			return apperr.Internal(op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, categoriesKey, menuKey(id))
	return nil
}

// ListMenu returns the items of a category ordered by name.
func (s *Catalog) ListMenu(ctx context.Context, categoryID uint) ([]models.MenuItem, error) {
	const op = "list_menu"
	if err := s.requireCategory(op, categoryID); err != nil {
		return nil, err
	}

	var items []models.MenuItem
	key := menuKey(categoryID)
	if s.cached(ctx, key, &items) {
		return items, nil
	}

	if err := s.DB.Where("category_id = ?", categoryID).Order("name").Find(&items).Error; err != nil {
		return nil, apperr.Internal(op, err)
	}
	s.store(ctx, key, items)
	return items, nil
}

// SortMenu orders a category's items by price; direction is "asc" or "desc".
func (s *Catalog) SortMenu(ctx context.Context, categoryID uint, direction string) ([]models.MenuItem, error) {
	const op = "sort_menu"

	var order string
	switch direction {
	case "asc":
		order = "price asc, name"
	case "desc":
		order = "price desc, name"
	default:
		return nil, apperr.Validation(op, "sort must be asc or desc")
	}

	if err := s.requireCategory(op, categoryID); err != nil {
		return nil, err
	}

	var items []models.MenuItem
	if err := s.DB.Where("category_id = ?", categoryID).Order(order).Find(&items).Error; err != nil {
		return nil, apperr.Internal(op, err)
	}
	return items, nil
}

// SearchMenu finds a category's items whose name contains query, ignoring case.
func (s *Catalog) SearchMenu(ctx context.Context, categoryID uint, query string) ([]models.MenuItem, error) {
	const op = "search_menu"
	if err := s.requireCategory(op, categoryID); err != nil {
		return nil, err
	}

	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var items []models.MenuItem
	err := s.DB.Where("category_id = ? AND LOWER(name) LIKE ?", categoryID, pattern).
		Order("name").
		Find(&items).Error
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return items, nil
}

func (s *Catalog) GetMenuItem(ctx context.Context, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.DB.First(&item, id).Error; err != nil {
		return nil, storeErr("get_menu_item", "menu item", id, err)
	}
	return &item, nil
}

func (s *Catalog) CreateMenuItem(ctx context.Context, in models.MenuItem) (*models.MenuItem, error) {
	const op = "create_menu_item"
	if err := s.Gate.Require(ctx, access.MenuCreate); err != nil {
		return nil, err
	}

	item := normalizeMenuItem(in)
	if err := models.ValidateMenuItem(&item); err != nil {
		return nil, apperr.Validation(op, err.Error())
	}
	if err := s.requireCategory(op, item.CategoryID); err != nil {
		return nil, err
	}

	if err := s.DB.Create(&item).Error; err != nil {
		return nil, apperr.Internal(op, err)
	}

	s.invalidate(ctx, menuKey(item.CategoryID))
	return &item, nil
}

// UpdateMenuItem replaces every editable field of a menu item. Existing order
// lines keep their amounts until they are touched or the order is recalculated.
func (s *Catalog) UpdateMenuItem(ctx context.Context, id uint, in models.MenuItem) (*models.MenuItem, error) {
	const op = "update_menu_item"
	if err := s.Gate.Require(ctx, access.MenuUpdate); err != nil {
		return nil, err
	}

	update := normalizeMenuItem(in)
	if err := models.ValidateMenuItem(&update); err != nil {
		return nil, apperr.Validation(op, err.Error())
	}

	var item models.MenuItem
	if err := s.DB.First(&item, id).Error; err != nil {
		return nil, storeErr(op, "menu item", id, err)
	}
	if err := s.requireCategory(op, update.CategoryID); err != nil {
		return nil, err
	}

	previousCategory := item.CategoryID
	item.CategoryID = update.CategoryID
	item.Name = update.Name
	item.Slug = update.Slug
	item.Weight = update.Weight
	item.Capacity = update.Capacity
	item.Price = update.Price
	item.Description = update.Description
	item.Image = update.Image

	if err := s.DB.Save(&item).Error; err != nil {
		return nil, apperr.Internal(op, err)
	}

	s.invalidate(ctx, menuKey(previousCategory), menuKey(item.CategoryID))
	return &item, nil
}

// DeleteMenuItem removes a menu item that no order line references.
func (s *Catalog) DeleteMenuItem(ctx context.Context, id uint) error {
	const op = "delete_menu_item"
	if err := s.Gate.Require(ctx, access.MenuDelete); err != nil {
		return err
	}

	var item models.MenuItem
	err := database.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		if err := tx.First(&item, id).Error; err != nil {
			return storeErr(op, "menu item", id, err)
		}

		var used int
		if err := tx.Model(&models.OrderItem{}).Where("menu_item_id = ?", id).Count(&used).Error; err != nil {
			return apperr.Internal(op, err)
		}
		if used > 0 {
			return apperr.Conflict(op, "menu item is on an order")
		}

		if err := tx.Delete(&item).Error; err != nil {
			return apperr.Internal(op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, menuKey(item.CategoryID))
	return nil
}

func (s *Catalog) requireCategory(op string, id uint) error {
	var category models.Category
	return storeErr(op, "category", id, s.DB.First(&category, id).Error)
}

func normalizeMenuItem(in models.MenuItem) models.MenuItem {
	out := models.MenuItem{
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Slug:        in.Slug,
		Weight:      in.Weight,
		Capacity:    in.Capacity,
		Price:       models.Money(in.Price),
		Description: in.Description,
		Image:       in.Image,
	}
	if out.Weight.Valid {
		out.Weight.Decimal = models.Money(out.Weight.Decimal)
	}
	if out.Capacity.Valid {
		out.Capacity.Decimal = models.Money(out.Capacity.Decimal)
	}
	return out
}

func (s *Catalog) cached(ctx context.Context, key string, dst interface{}) bool {
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.Log.Warn().Err(err).Str("action", "cache_get").Str("key", key).Msg("cache read failed")
		return false
	}
	return hit
}

func (s *Catalog) store(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.Log.Warn().Err(err).Str("action", "cache_set").Str("key", key).Msg("cache write failed")
	}
}

func (s *Catalog) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.Log.Warn().Err(err).Str("action", "cache_delete").Strs("keys", keys).Msg("cache invalidation failed")
	}
}
