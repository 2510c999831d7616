package subscription

import (
	"context"

	"github.com/KAsare1/subscriptions-server/cmd/models"
	"github.com/KAsare1/subscriptions-server/service/apierror"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Store is the persistence boundary. Every error it returns is already an
// *apierror.Error.
type Store interface {
	List(ctx context.Context, ownerID string, q ListQuery) ([]models.Subscription, int64, error)
	Get(ctx context.Context, id string) (*models.Subscription, error)
	Create(ctx context.Context, sub *models.Subscription) error
	Update(ctx context.Context, ownerID, id string, patch Patch) (*models.Subscription, error)
	Delete(ctx context.Context, ownerID, id string) error
	ListByCurrency(ctx context.Context, ownerID string, currency models.Currency) ([]models.Subscription, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// List runs the page read and the total count concurrently and returns only
// once both have finished.
func (s *gormStore) List(ctx context.Context, ownerID string, q ListQuery) ([]models.Subscription, int64, error) {
	var (
		items []models.Subscription
		total int64
		g     errgroup.Group
	)
	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.Subscription{}).
			Scopes(Filter(ownerID, q), Page(q)).
			Find(&items).Error
	})
	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.Subscription{}).
			Scopes(Filter(ownerID, q)).
			Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, apierror.FromStore(err)
	}
	return items, total, nil
}

// Get looks a subscription up by id alone; ownership is the caller's check.
func (s *gormStore) Get(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, apierror.FromStore(err)
	}
	return &sub, nil
}

func (s *gormStore) Create(ctx context.Context, sub *models.Subscription) error {
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return apierror.FromStore(err)
	}
	return nil
}

// Update writes only the present attributes of patch and returns the stored
// row. A missing or foreign id is reported as not found.
func (s *gormStore) Update(ctx context.Context, ownerID, id string, patch Patch) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cols := patch.Columns(); len(cols) > 0 {
			res := tx.Model(&models.Subscription{}).
				Where("id = ? AND user_id = ?", id, ownerID).
				Updates(cols)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return tx.Where("id = ? AND user_id = ?", id, ownerID).First(&sub).Error
	})
	if err != nil {
		return nil, apierror.FromStore(err)
	}
	return &sub, nil
}

func (s *gormStore) Delete(ctx context.Context, ownerID, id string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return apierror.FromStore(res.Error)
	}
	if res.RowsAffected == 0 {
		return apierror.NotFound("Subscription not found")
	}
	return nil
}

func (s *gormStore) ListByCurrency(ctx context.Context, ownerID string, currency models.Currency) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND currency = ?", ownerID, currency).
		Order("next_billing_at").
		Find(&subs).Error
	if err != nil {
		return nil, apierror.FromStore(err)
	}
	return subs, nil
}
