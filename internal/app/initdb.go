package app

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bbluechip/catalogadmin/internal/domain"
	"github.com/bbluechip/catalogadmin/pkg/common"
)

const (
	superUsername   = "admin"
	superLevel      = "super"
	defaultPassword = "catalogadmin"
)

// checkSuper makes sure the default super operator exists and can log in.
func (a *Application) checkSuper() {
	if err := a.seedSuperOperator(); err != nil {
		zap.L().Error("super operator check failed", zap.String("username", superUsername), zap.Error(err))
	}
}

func (a *Application) seedSuperOperator() error {
	var operator domain.SysOpr
	err := a.gormDB.Where("username = ?", superUsername).First(&operator).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hashed, err := common.HashPassword(defaultPassword)
		if err != nil {
			return err
		}
		err = a.gormDB.Create(&domain.SysOpr{
			ID:        common.UUIDint64(),
			Realname:  "administrator",
			Email:     "N/A",
			Username:  superUsername,
			Password:  hashed,
			Level:     superLevel,
			Status:    common.ENABLED,
			Remark:    superLevel,
			LastLogin: time.Now(),
		}).Error
		if err == nil {
			zap.L().Info("created default super operator", zap.String("username", superUsername))
		}
		return err
	}
	if err != nil {
		return err
	}

	repairs, err := superRepairs(&operator)
	if err != nil || len(repairs) == 0 {
		return err
	}
	repairs["updated_at"] = time.Now()
	if err := a.gormDB.Model(&domain.SysOpr{}).Where("id = ?", operator.ID).Updates(repairs).Error; err != nil {
		return err
	}
	zap.L().Warn("repaired default super operator",
		zap.String("username", superUsername),
		zap.Int("fields", len(repairs)-1))
	return nil
}

// superRepairs lists the columns that keep the super operator from logging
// in, with their restored values.
func superRepairs(operator *domain.SysOpr) (map[string]interface{}, error) {
	repairs := map[string]interface{}{}
	if strings.TrimSpace(operator.Password) == "" {
		hashed, err := common.HashPassword(defaultPassword)
		if err != nil {
			return nil, err
		}
		repairs["password"] = hashed
	}
	if !strings.EqualFold(operator.Level, superLevel) {
		repairs["level"] = superLevel
	}
	if !strings.EqualFold(operator.Status, common.ENABLED) {
		repairs["status"] = common.ENABLED
	}
	return repairs, nil
}
