package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ManagerOptions contains the dependencies of a Manager
type ManagerOptions struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// Manager handles the database operations relating to Subscriptions
type Manager struct {
	ManagerOptions
}

var _ Store = &Manager{}

// NewManager returns a new Manager for subscriptions
func NewManager(option ManagerOptions) (*Manager, error) {
	if option.DB == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if err := option.DB.AutoMigrate(&Subscription{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize subscription.Manager")
	}
	return &Manager{
		ManagerOptions: option,
	}, nil
}

func (m *Manager) Create(ctx context.Context, sub *Subscription) error {
	result := m.DB.WithContext(ctx).Create(sub)
	if result.Error != nil {
		m.Logger.Error("Unable to create new subscription in database",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot create subscription")
	}
	return nil
}

// GetByID will return the subscription with the given id, or nil if none exists
func (m *Manager) GetByID(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription

	result := m.DB.WithContext(ctx).First(&sub, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get subscription by id")
	}

	return &sub, nil
}

// List returns one account's subscriptions, soonest end date first
func (m *Manager) List(ctx context.Context, opt ListOption) ([]Subscription, error) {
	if len(opt.OwnerID) == 0 {
		return nil, fmt.Errorf("ListOption.OwnerID is required")
	}
	baseQuery := m.DB.WithContext(ctx).Order("end_date asc").Where("owner_id = ?", opt.OwnerID)
	if !opt.IncludeDeleted {
		baseQuery = baseQuery.Where("deleted = ?", false)
	}
	if !opt.Before.IsZero() {
		baseQuery = baseQuery.Where("created_at < ?", opt.Before)
	}
	if opt.Limit > 0 {
		baseQuery = baseQuery.Limit(opt.Limit)
	}

	results := make([]Subscription, 0, 1)
	result := baseQuery.Find(&results)
	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// ListAll returns every subscription across all accounts for the bulk
// reconciliation pass
func (m *Manager) ListAll(ctx context.Context) ([]Subscription, error) {
	results := make([]Subscription, 0, 1)
	result := m.DB.WithContext(ctx).Order("owner_id asc, end_date asc").Find(&results)
	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// LambdaUpdate will perform a transactional update based on the lambda
// function, locking the selected Subscription with FOR UPDATE so that
// classification, renewal, and persistence of one record form one atomic
// unit. If the lambda signals shouldSave and the save succeeds, the result
// carries the new state.
func (m *Manager) LambdaUpdate(ctx context.Context, id string, lambda LambdaUpdateFunc) LambdaUpdateResult {
	var lambdaResult LambdaUpdateResult
	var desired Subscription
	var saved bool
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current Subscription
		lookupRes := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, "id = ?", id)
		if lookupRes.Error == nil {
			desired = current
			shouldSave, ret := lambda(&current, &desired)
			lambdaResult.ReturnValue = ret
			if shouldSave {
				if saveRes := tx.Save(&desired); saveRes.Error != nil {
					return saveRes.Error
				}
				saved = true
			}
			return nil
		} else if errors.Is(lookupRes.Error, gorm.ErrRecordNotFound) {
			_, ret := lambda(nil, nil)
			lambdaResult.ReturnValue = ret
			return nil
		}
		return lookupRes.Error
	}, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		lambdaResult.TxError = err
		return lambdaResult
	}
	if saved {
		lambdaResult.Subscription = &desired
	}
	return lambdaResult
}
