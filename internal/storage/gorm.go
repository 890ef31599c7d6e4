package storage

import (
	"errors"
	"fmt"
	"log"
	"os"

	"mcwatch/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type Server struct {
	Address     string `gorm:"primaryKey"`
	DisplayName string
	Position    int `gorm:"index"`
}

type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

type GormStore struct {
	db *gorm.DB
}

func NewSQLiteStore(path string) (*GormStore, error) {
	return newGormStore(sqlite.Open(path))
}

func NewPostgresStore(dsn string) (*GormStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres backend needs a DSN")
	}
	return newGormStore(postgres.Open(dsn))
}

func newGormStore(dialector gorm.Dialector) (*GormStore, error) {
	newLogger := gormlogger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		gormlogger.Config{
			IgnoreRecordNotFoundError: true,
			LogLevel:                  gormlogger.Error,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	err = db.AutoMigrate(&Server{}, &Setting{})
	if err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	store := &GormStore{db: db}

	if err := store.initDefaultSettings(); err != nil {
		return nil, fmt.Errorf("error initializing settings: %w", err)
	}

	return store, nil
}

func (s *GormStore) initDefaultSettings() error {
	for key, value := range domain.DefaultSettings {
		err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&Setting{Key: key, Value: value}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *GormStore) LoadAddresses() ([]domain.AddressRecord, error) {
	var rows []Server
	if err := s.db.Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error listing servers: %w", err)
	}

	records := make([]domain.AddressRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.AddressRecord{Address: row.Address, DisplayName: row.DisplayName})
	}
	return records, nil
}

// SaveAddresses replaces the whole list in one transaction.
func (s *GormStore) SaveAddresses(records []domain.AddressRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Server{}).Error; err != nil {
			return fmt.Errorf("error clearing servers: %w", err)
		}
		if len(records) == 0 {
			return nil
		}

		rows := make([]Server, 0, len(records))
		for i, rec := range records {
			rows = append(rows, Server{Address: rec.Address, DisplayName: rec.DisplayName, Position: i})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("error saving servers: %w", err)
		}
		return nil
	})
}

func (s *GormStore) GetSetting(key string) (string, error) {
	var setting Setting
	result := s.db.First(&setting, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s", domain.ErrSettingNotFound, key)
		}
		return "", result.Error
	}
	return setting.Value, nil
}

func (s *GormStore) SetSetting(key string, value string) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Setting{Key: key, Value: value}).Error
}

func (s *GormStore) ListSettings() (map[string]string, error) {
	var settings []Setting
	if err := s.db.Find(&settings).Error; err != nil {
		return nil, err
	}

	out := make(map[string]string, len(settings))
	for _, setting := range settings {
		out[setting.Key] = setting.Value
	}
	return out, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
