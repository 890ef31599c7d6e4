package domain

import "errors"

var ErrSettingNotFound = errors.New("setting not found")

type AddressRepository interface {
	LoadAddresses() ([]AddressRecord, error)
	SaveAddresses(records []AddressRecord) error
}

type SettingRepository interface {
	GetSetting(key string) (string, error)
	SetSetting(key string, value string) error
	ListSettings() (map[string]string, error)
}

type Repository interface {
	AddressRepository
	SettingRepository
	Close() error
}

// DefaultSettings are written by every store on first open.
var DefaultSettings = map[string]string{
	"theme": "light",
}
