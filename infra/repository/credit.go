package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/amirasaad/tradelens/pkg/domain"
	"github.com/amirasaad/tradelens/pkg/domain/credit"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type creditAccountRepository struct {
	db *gorm.DB
}

func (r *creditAccountRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*credit.Account, error) {
	var model CreditAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		model = CreditAccount{ID: uuid.New(), UserID: userID, Balance: 0}
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			return nil, mapGormError(err)
		}
	} else if err != nil {
		return nil, mapGormError(err)
	}
	return accountToDomain(&model), nil
}

func (r *creditAccountRepository) DebitGuarded(ctx context.Context, accountID uuid.UUID, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&CreditAccount{}).
		Where("id = ? AND balance >= ?", accountID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return false, mapGormError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *creditAccountRepository) Credit(ctx context.Context, accountID uuid.UUID, amount int64) error {
	res := r.db.WithContext(ctx).
		Model(&CreditAccount{}).
		Where("id = ?", accountID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return mapGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type creditTransactionRepository struct {
	db *gorm.DB
}

func (r *creditTransactionRepository) Create(ctx context.Context, tx *credit.Transaction) error {
	model, err := transactionToModel(tx)
	if err != nil {
		return err
	}
	return mapGormError(r.db.WithContext(ctx).Create(model).Error)
}

func (r *creditTransactionRepository) ExistsDedupKey(ctx context.Context, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&CreditTransaction{}).
		Where("dedup_key = ?", key).
		Count(&count).Error
	if err != nil {
		return false, mapGormError(err)
	}
	return count > 0, nil
}

func (r *creditTransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*credit.Transaction, error) {
	var models []CreditTransaction
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	out := make([]*credit.Transaction, 0, len(models))
	for i := range models {
		tx, err := transactionToDomain(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (r *creditTransactionRepository) SumCompleted(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&CreditTransaction{}).
		Where("account_id = ? AND status = ?", accountID, string(credit.TxCompleted)).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, mapGormError(err)
	}
	return sum, nil
}

func accountToDomain(m *CreditAccount) *credit.Account {
	return &credit.Account{
		ID:        m.ID,
		UserID:    m.UserID,
		Balance:   m.Balance,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func transactionToModel(tx *credit.Transaction) (*CreditTransaction, error) {
	model := &CreditTransaction{
		ID:        tx.ID,
		AccountID: tx.AccountID,
		Amount:    tx.Amount,
		Type:      string(tx.Type),
		Status:    string(tx.Status),
	}
	// NULL, not empty string, so the unique index ignores keyless rows
	if tx.DedupKey != "" {
		key := tx.DedupKey
		model.DedupKey = &key
	}
	if tx.Metadata != nil {
		raw, err := json.Marshal(tx.Metadata)
		if err != nil {
			return nil, err
		}
		model.Metadata = raw
	}
	return model, nil
}

func transactionToDomain(m *CreditTransaction) (*credit.Transaction, error) {
	tx := &credit.Transaction{
		ID:        m.ID,
		AccountID: m.AccountID,
		Amount:    m.Amount,
		Type:      credit.TxType(m.Type),
		Status:    credit.TxStatus(m.Status),
		CreatedAt: m.CreatedAt,
	}
	if m.DedupKey != nil {
		tx.DedupKey = *m.DedupKey
	}
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &tx.Metadata); err != nil {
			return nil, err
		}
	}
	return tx, nil
}
