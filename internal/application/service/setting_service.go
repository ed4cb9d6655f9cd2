package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/garyjia/trip-expense/internal/application/authz"
	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	apperrors "github.com/garyjia/trip-expense/pkg/errors"
	"github.com/garyjia/trip-expense/pkg/utils"
)

// SettingService manages system settings
type SettingService interface {
	Get(ctx context.Context, actor entity.Actor, key string) (*entity.Setting, error)
	List(ctx context.Context, actor entity.Actor) ([]*entity.Setting, error)
	Update(ctx context.Context, actor entity.Actor, key, value string) (*entity.Setting, error)
	// PricePerKM is readable by every role; trip budgets are estimated with it
	PricePerKM(ctx context.Context) (int64, error)
}

// Mileage rate bounds in whole rupiah
const (
	minPricePerKM = 1000
	maxPricePerKM = 50000
)

// settingValidators checks values of known keys
var settingValidators = map[string]func(value string) error{
	entity.SettingPricePerKM: func(value string) error {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return errors.New("must be a whole number")
		}
		if n < minPricePerKM || n > maxPricePerKM {
			return fmt.Errorf("must be between %d and %d", minPricePerKM, maxPricePerKM)
		}
		return nil
	},
}

type settingServiceImpl struct {
	repo   port.SettingRepository
	policy *authz.Policy
	logger Logger
	now    func() time.Time
}

// NewSettingService creates a new SettingService
func NewSettingService(repo port.SettingRepository, policy *authz.Policy, logger Logger) SettingService {
	return &settingServiceImpl{repo: repo, policy: policy, logger: logger, now: time.Now}
}

func (s *settingServiceImpl) Get(ctx context.Context, actor entity.Actor, key string) (*entity.Setting, error) {
	if !s.policy.CanViewSettings(actor) {
		return nil, forbidden("view settings")
	}
	return s.load(ctx, key)
}

func (s *settingServiceImpl) load(ctx context.Context, key string) (*entity.Setting, error) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get setting: %w", err)
	}
	if setting == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "setting %q not found", key)
	}
	return setting, nil
}

func (s *settingServiceImpl) List(ctx context.Context, actor entity.Actor) ([]*entity.Setting, error) {
	if !s.policy.CanViewSettings(actor) {
		return nil, forbidden("view settings")
	}
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// Update changes the value of an existing setting
func (s *settingServiceImpl) Update(ctx context.Context, actor entity.Actor, key, value string) (*entity.Setting, error) {
	if !s.policy.CanManageSettings(actor) {
		return nil, forbidden("change settings")
	}
	value = utils.SanitizeString(value)

	setting, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if validate, ok := settingValidators[key]; ok {
		if err := validate(value); err != nil {
			return nil, apperrors.Newf(apperrors.CodeValidation, "invalid value for %s", key).
				WithDetails(map[string]string{"value": err.Error()})
		}
	}

	setting.Value = value
	setting.UpdatedBy = actor.ID
	setting.UpdatedAt = s.now()
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, fmt.Errorf("update setting: %w", err)
	}

	s.logger.Info("Setting updated", "key", key, "actor_id", actor.ID)
	return setting, nil
}

// PricePerKM returns the mileage rate used for transport receipts
func (s *settingServiceImpl) PricePerKM(ctx context.Context) (int64, error) {
	setting, err := s.load(ctx, entity.SettingPricePerKM)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(setting.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", entity.SettingPricePerKM, err)
	}
	return n, nil
}
