package db

import (
	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
	"gorm.io/gorm"
)

type DbDao struct {
	*gorm.DB
}

func NewDbDao(conn *gorm.DB) *DbDao {
	return &DbDao{
		DB: conn,
	}
}

// InitMigrate is idempotent.
func (d *DbDao) InitMigrate() error {
	err := d.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
	)
	if err != nil {
		return err
	}
	// users.email used to be unique including empty values
	if d.Migrator().HasIndex(&model.User{}, "idx_users_email") {
		return d.Migrator().DropIndex(&model.User{}, "idx_users_email")
	}
	return nil
}

func (d *DbDao) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
