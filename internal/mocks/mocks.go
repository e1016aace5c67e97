// Package mocks provides testify mocks for the repository and engine
// interfaces. Test-only.
package mocks

import (
	"context"
	"time"

	"boltcard/internal/lightning"
	"boltcard/internal/models"
	"boltcard/internal/repositories"
	"boltcard/internal/services/limits"

	"github.com/stretchr/testify/mock"
)

type CardRepository struct {
	mock.Mock
}

func (m *CardRepository) Create(ctx context.Context, card *models.Card) error {
	return m.Called(ctx, card).Error(0)
}

func (m *CardRepository) GetByID(ctx context.Context, id uint) (*models.Card, error) {
	args := m.Called(ctx, id)
	card, _ := args.Get(0).(*models.Card)
	return card, args.Error(1)
}

func (m *CardRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Card, error) {
	args := m.Called(ctx, externalID)
	card, _ := args.Get(0).(*models.Card)
	return card, args.Error(1)
}

func (m *CardRepository) GetByUID(ctx context.Context, uid string) (*models.Card, error) {
	args := m.Called(ctx, uid)
	card, _ := args.Get(0).(*models.Card)
	return card, args.Error(1)
}

func (m *CardRepository) GetByOTP(ctx context.Context, otp string) (*models.Card, error) {
	args := m.Called(ctx, otp)
	card, _ := args.Get(0).(*models.Card)
	return card, args.Error(1)
}

func (m *CardRepository) ListByWallets(ctx context.Context, walletIDs []string) ([]models.Card, error) {
	args := m.Called(ctx, walletIDs)
	cards, _ := args.Get(0).([]models.Card)
	return cards, args.Error(1)
}

func (m *CardRepository) Update(ctx context.Context, card *models.Card) error {
	return m.Called(ctx, card).Error(0)
}

func (m *CardRepository) DeleteCascading(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *CardRepository) AdvanceCounter(ctx context.Context, id uint, newCounter uint32) error {
	return m.Called(ctx, id, newCounter).Error(0)
}

func (m *CardRepository) SetEnabled(ctx context.Context, id uint, enabled bool) error {
	return m.Called(ctx, id, enabled).Error(0)
}

func (m *CardRepository) RotateOTP(ctx context.Context, id uint, otp string) error {
	return m.Called(ctx, id, otp).Error(0)
}

func (m *CardRepository) SetPinTries(ctx context.Context, id uint, tries int) error {
	return m.Called(ctx, id, tries).Error(0)
}

type HitRepository struct {
	mock.Mock
}

func (m *HitRepository) Create(ctx context.Context, hit *models.Hit) error {
	return m.Called(ctx, hit).Error(0)
}

func (m *HitRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Hit, error) {
	args := m.Called(ctx, externalID)
	hit, _ := args.Get(0).(*models.Hit)
	return hit, args.Error(1)
}

func (m *HitRepository) ListByCards(ctx context.Context, cardIDs []uint) ([]models.Hit, error) {
	args := m.Called(ctx, cardIDs)
	hits, _ := args.Get(0).([]models.Hit)
	return hits, args.Error(1)
}

func (m *HitRepository) Spend(ctx context.Context, id uint, amountSat int64, amountFiat float64) error {
	return m.Called(ctx, id, amountSat, amountFiat).Error(0)
}

func (m *HitRepository) LinkPayment(ctx context.Context, id uint, paymentID string) error {
	return m.Called(ctx, id, paymentID).Error(0)
}

func (m *HitRepository) DailyTotals(ctx context.Context, cardID uint, now time.Time) (repositories.SpendTotals, error) {
	args := m.Called(ctx, cardID, now)
	totals, _ := args.Get(0).(repositories.SpendTotals)
	return totals, args.Error(1)
}

func (m *HitRepository) MonthlyTotals(ctx context.Context, cardID uint, now time.Time) (repositories.SpendTotals, error) {
	args := m.Called(ctx, cardID, now)
	totals, _ := args.Get(0).(repositories.SpendTotals)
	return totals, args.Error(1)
}

type RefundRepository struct {
	mock.Mock
}

func (m *RefundRepository) Create(ctx context.Context, refund *models.Refund) (bool, error) {
	args := m.Called(ctx, refund)
	return args.Bool(0), args.Error(1)
}

func (m *RefundRepository) ListByHits(ctx context.Context, hitIDs []uint) ([]models.Refund, error) {
	args := m.Called(ctx, hitIDs)
	refunds, _ := args.Get(0).([]models.Refund)
	return refunds, args.Error(1)
}

type Engine struct {
	mock.Mock
}

func (m *Engine) CreateInvoice(ctx context.Context, walletID string, amountSat int64, memo, unhashedDescription string, extra map[string]any) (lightning.Invoice, error) {
	args := m.Called(ctx, walletID, amountSat, memo, unhashedDescription, extra)
	invoice, _ := args.Get(0).(lightning.Invoice)
	return invoice, args.Error(1)
}

func (m *Engine) PayInvoice(ctx context.Context, walletID, bolt11 string, maxSat int64, extra map[string]any) (string, error) {
	args := m.Called(ctx, walletID, bolt11, maxSat, extra)
	return args.String(0), args.Error(1)
}

func (m *Engine) WalletBalance(ctx context.Context, walletID string) (int64, error) {
	args := m.Called(ctx, walletID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Engine) FiatEquivalent(ctx context.Context, walletID string, amountSat int64) (float64, error) {
	args := m.Called(ctx, walletID, amountSat)
	return args.Get(0).(float64), args.Error(1)
}

func (m *Engine) SubscribeSettlements(ctx context.Context, consumerTag string) (<-chan lightning.Payment, error) {
	args := m.Called(ctx, consumerTag)
	ch, _ := args.Get(0).(<-chan lightning.Payment)
	return ch, args.Error(1)
}

func (m *Engine) MarkSettlementProcessed(ctx context.Context, paymentID string) error {
	return m.Called(ctx, paymentID).Error(0)
}

type LimitService struct {
	mock.Mock
}

func (m *LimitService) Convert(ctx context.Context, card *models.Card, amountSat int64) (limits.Amount, error) {
	args := m.Called(ctx, card, amountSat)
	amount, _ := args.Get(0).(limits.Amount)
	return amount, args.Error(1)
}

func (m *LimitService) Check(ctx context.Context, card *models.Card, candidate limits.Amount) error {
	return m.Called(ctx, card, candidate).Error(0)
}

func (m *LimitService) CheckAggregate(ctx context.Context, card *models.Card, candidate limits.Amount) error {
	return m.Called(ctx, card, candidate).Error(0)
}

func (m *LimitService) CheckPin(ctx context.Context, card *models.Card, candidate limits.Amount, pin string) error {
	return m.Called(ctx, card, candidate, pin).Error(0)
}
