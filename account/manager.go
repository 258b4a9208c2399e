package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ManagerOptions contains the dependencies of a Manager
type ManagerOptions struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// Manager handles the database operations relating to Accounts
type Manager struct {
	ManagerOptions
}

// NewManager returns a new Manager for accounts
func NewManager(option ManagerOptions) (*Manager, error) {
	if option.DB == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if err := option.DB.AutoMigrate(&Account{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize account.Manager")
	}
	return &Manager{
		ManagerOptions: option,
	}, nil
}

// NewAccount will create a new account in the database
func (m *Manager) NewAccount(ctx context.Context, email string) (*Account, error) {
	acct := &Account{
		ID:    uuid.New().String(),
		Email: email,
	}

	result := m.DB.WithContext(ctx).Create(acct)
	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot create a new Account")
	}

	return acct, nil
}

// GetByID will try to return the account in the database by id
func (m *Manager) GetByID(ctx context.Context, id string) (*Account, error) {
	var acct Account

	result := m.DB.WithContext(ctx).First(&acct, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get account by id")
	}

	return &acct, nil
}

// GetByEmail will try to return the account in the database by email address
func (m *Manager) GetByEmail(ctx context.Context, email string) (*Account, error) {
	var acct Account

	result := m.DB.WithContext(ctx).First(&acct, "email = ?", email)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get account by email")
	}

	return &acct, nil
}
