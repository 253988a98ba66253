package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"social-hub/models"
)

const maxProductTitle = 200

type ProductInput struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    *string         `json:"category"`
	Condition   *string         `json:"condition"`
	Location    *string         `json:"location"`
	Images      []string        `json:"images"`
}

func (s *Store) CreateProduct(ctx context.Context, sellerID uint, in ProductInput) (*models.Product, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || len(title) > maxProductTitle {
		return nil, invalidf("title must be 1-%d characters", maxProductTitle)
	}
	if err := validAmount(in.Price, "price"); err != nil {
		return nil, err
	}
	images := make([]string, 0, len(in.Images))
	for _, img := range in.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	product := &models.Product{
		SellerID:    sellerID,
		Title:       title,
		Description: trimmed(in.Description),
		Price:       in.Price,
		Category:    trimmed(in.Category),
		Condition:   trimmed(in.Condition),
		Location:    trimmed(in.Location),
		Images:      images,
		IsActive:    true,
	}
	if err := s.conn(ctx).Create(product).Error; err != nil {
		return nil, persistence(err)
	}
	return product, nil
}

// Products 商品列表，可按分类过滤；已售商品不展示
func (s *Store) Products(ctx context.Context, category string, limit, offset int) ([]models.Product, error) {
	limit, offset = page(limit, offset)
	q := s.conn(ctx).Where("is_active = ? AND is_sold = ?", true, false)
	if category = strings.TrimSpace(category); category != "" {
		q = q.Where("category = ?", category)
	}
	var products []models.Product
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		return nil, persistence(err)
	}
	return products, nil
}

func (s *Store) UserProducts(ctx context.Context, sellerID uint) ([]models.Product, error) {
	var products []models.Product
	err := s.conn(ctx).Where("seller_id = ? AND is_active = ?", sellerID, true).
		Order("created_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, persistence(err)
	}
	return products, nil
}

// ViewProduct returns the product and counts the view.
func (s *Store) ViewProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND is_active = ?", id, true).First(&product).Error; err != nil {
			return lookupErr(err, "product")
		}
		if err := bump(tx, &models.Product{}, id, "views_count", 1); err != nil {
			return err
		}
		product.ViewsCount++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Store) MarkProductSold(ctx context.Context, sellerID, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.conn(ctx).Where("id = ? AND is_active = ?", id, true).First(&product).Error; err != nil {
		return nil, lookupErr(err, "product")
	}
	if product.SellerID != sellerID {
		return nil, ErrForbidden
	}
	if err := s.conn(ctx).Model(&product).Update("is_sold", true).Error; err != nil {
		return nil, persistence(err)
	}
	return &product, nil
}
