package repositories

import (
	"context"
	"errors"
	"fmt"

	"boltcard/internal/models"
	"boltcard/internal/repositories/cache"

	"gorm.io/gorm"
)

type cardRepository struct {
	db    *gorm.DB
	cache *cache.Service
}

func NewCardRepository(db *gorm.DB, cacheService *cache.Service) CardRepository {
	return &cardRepository{
		db:    db,
		cache: cacheService,
	}
}

func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	result := r.db.WithContext(ctx).Create(card)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCard
		}
		return fmt.Errorf("failed to create card: %w", result.Error)
	}
	return nil
}

func (r *cardRepository) GetByID(ctx context.Context, id uint) (*models.Card, error) {
	var card models.Card
	if err := r.db.WithContext(ctx).First(&card, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

// GetByExternalID is the tap hot path; it reads through the cache. A stale
// cached counter is harmless here, AdvanceCounter is the acceptance gate.
func (r *cardRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Card, error) {
	if r.cache != nil {
		key := r.cache.GenerateKey("card", "external_id", externalID)
		if card, err := r.cache.GetCard(ctx, key); err == nil {
			return card, nil
		}
	}

	var card models.Card
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	if r.cache != nil {
		_ = r.cache.CacheCard(ctx, &card)
	}
	return &card, nil
}

func (r *cardRepository) GetByUID(ctx context.Context, uid string) (*models.Card, error) {
	var card models.Card
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

func (r *cardRepository) GetByOTP(ctx context.Context, otp string) (*models.Card, error) {
	var card models.Card
	if err := r.db.WithContext(ctx).Where("otp = ?", otp).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

func (r *cardRepository) ListByWallets(ctx context.Context, walletIDs []string) ([]models.Card, error) {
	if len(walletIDs) == 0 {
		return nil, nil
	}
	var cards []models.Card
	if err := r.db.WithContext(ctx).Where("wallet_id IN ?", walletIDs).Order("created_at DESC").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, nil
}

func (r *cardRepository) Update(ctx context.Context, card *models.Card) error {
	if err := r.db.WithContext(ctx).Save(card).Error; err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	r.invalidate(ctx, card)
	return nil
}

func (r *cardRepository) DeleteCascading(ctx context.Context, id uint) error {
	card, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var hitIDs []uint
		if err := tx.Model(&models.Hit{}).Where("card_id = ?", id).Pluck("id", &hitIDs).Error; err != nil {
			return err
		}
		if len(hitIDs) > 0 {
			if err := tx.Where("hit_id IN ?", hitIDs).Delete(&models.Refund{}).Error; err != nil {
				return err
			}
			if err := tx.Where("card_id = ?", id).Delete(&models.Hit{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Card{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}

	r.invalidate(ctx, card)
	return nil
}

func (r *cardRepository) AdvanceCounter(ctx context.Context, id uint, newCounter uint32) error {
	result := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("id = ? AND counter < ?", id, newCounter).
		Update("counter", newCounter)
	if result.Error != nil {
		return fmt.Errorf("failed to advance counter: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCounterStale
	}
	r.invalidateByID(ctx, id)
	return nil
}

func (r *cardRepository) SetEnabled(ctx context.Context, id uint, enabled bool) error {
	updates := map[string]interface{}{"enabled": enabled}
	if enabled {
		updates["pin_tries"] = 0
	}
	result := r.db.WithContext(ctx).Model(&models.Card{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to set enabled: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	r.invalidateByID(ctx, id)
	return nil
}

func (r *cardRepository) RotateOTP(ctx context.Context, id uint, otp string) error {
	result := r.db.WithContext(ctx).Model(&models.Card{}).Where("id = ?", id).Update("otp", otp)
	if result.Error != nil {
		return fmt.Errorf("failed to rotate otp: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	r.invalidateByID(ctx, id)
	return nil
}

func (r *cardRepository) SetPinTries(ctx context.Context, id uint, tries int) error {
	result := r.db.WithContext(ctx).Model(&models.Card{}).Where("id = ?", id).Update("pin_tries", tries)
	if result.Error != nil {
		return fmt.Errorf("failed to set pin tries: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	r.invalidateByID(ctx, id)
	return nil
}

func (r *cardRepository) invalidate(ctx context.Context, card *models.Card) {
	if r.cache != nil {
		_ = r.cache.InvalidateCard(ctx, card)
	}
}

func (r *cardRepository) invalidateByID(ctx context.Context, id uint) {
	if r.cache == nil {
		return
	}
	var card models.Card
	if err := r.db.WithContext(ctx).First(&card, id).Error; err != nil {
		return
	}
	_ = r.cache.InvalidateCard(ctx, &card)
}
