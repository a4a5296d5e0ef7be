package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/bbluechip/catalogadmin/internal/domain"
)

// GormStore is the gorm backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CountReviews(ctx context.Context, productID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Review{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	return count, err
}

// CountReviewsByProduct counts reviews for a page of products in one query.
// Products without reviews are absent from the map.
func (s *GormStore) CountReviewsByProduct(ctx context.Context, productIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(productIDs))
	if len(productIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		ProductID int64
		Total     int64
	}
	err := s.db.WithContext(ctx).Model(&domain.Review{}).
		Select("product_id, count(*) as total").
		Where("product_id IN ?", productIDs).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.ProductID] = r.Total
	}
	return counts, nil
}

func (s *GormStore) MarkInStock(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Product{}).
			Where("id IN ?", ids).
			UpdateColumn("is_in_stock", true)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	return affected, err
}
