package devices

import (
	"errors"
	"strings"

	"openwan/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound — нет устройства с таким идентификатором (строковым или числовым).
var ErrNotFound = errors.New("device not found")

type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Create(d *models.Device) error {
	if strings.TrimSpace(d.UUID) == "" {
		d.UUID = uuid.NewString()
	}
	return s.db.Create(d).Error
}

// FindByDeviceID — поиск по строковому identity ("gateway-01").
// Таким же ключом связаны журнал статусов и список получателей.
func (s *Store) FindByDeviceID(deviceID string) (models.Device, bool, error) {
	var d models.Device
	err := s.db.Where(&models.Device{DeviceID: deviceID}).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Device{}, false, nil
		}
		return models.Device{}, false, err
	}
	return d, true, nil
}

// FindByID — поиск по числовому PK (детальные вьюхи фронтенда).
func (s *Store) FindByID(id uint) (models.Device, bool, error) {
	var d models.Device
	err := s.db.First(&d, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Device{}, false, nil
		}
		return models.Device{}, false, err
	}
	return d, true, nil
}

func (s *Store) List() ([]models.Device, error) {
	var out []models.Device
	err := s.db.Order("id").Find(&out).Error
	return out, err
}

func (s *Store) ListByAdmin(adminID uint) ([]models.Device, error) {
	var out []models.Device
	err := s.db.Where("admin_id = ?", adminID).Order("id").Find(&out).Error
	return out, err
}

func (s *Store) ListByManager(managerID uint) ([]models.Device, error) {
	var out []models.Device
	err := s.db.Where("manager_id = ?", managerID).Order("id").Find(&out).Error
	return out, err
}

func (s *Store) ListBySite(siteID uint) ([]models.Device, error) {
	var out []models.Device
	err := s.db.Where("site_id = ?", siteID).Order("id").Find(&out).Error
	return out, err
}

func (s *Store) CountByManager(managerID uint) (int64, error) {
	var n int64
	err := s.db.Model(&models.Device{}).Where("manager_id = ?", managerID).Count(&n).Error
	return n, err
}

// Update — частичное обновление по числовому PK; nil-поля не трогаем.
func (s *Store) Update(id uint, patch map[string]interface{}) (models.Device, error) {
	var d models.Device
	if err := s.db.First(&d, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Device{}, ErrNotFound
		}
		return models.Device{}, err
	}
	if len(patch) > 0 {
		if err := s.db.Model(&d).Updates(patch).Error; err != nil {
			return models.Device{}, err
		}
	}
	if err := s.db.First(&d, id).Error; err != nil {
		return models.Device{}, err
	}
	return d, nil
}

func (s *Store) Delete(id uint) error {
	res := s.db.Delete(&models.Device{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
