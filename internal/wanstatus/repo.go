package wanstatus

import (
	"errors"

	"openwan/internal/models"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// Latest — последняя по created_at запись для пары (identity, comment);
// ok=false, если наблюдений по этому ключу ещё не было.
func (r *Repo) Latest(identity, comment string) (models.WanStatusRecord, bool, error) {
	var rec models.WanStatusRecord
	err := r.db.
		Where("identity = ? AND comment = ?", identity, comment).
		Order("created_at DESC, id DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.WanStatusRecord{}, false, nil
		}
		return models.WanStatusRecord{}, false, err
	}
	return rec, true, nil
}

// Create — единственная запись в журнал; записи никогда не обновляются.
func (r *Repo) Create(rec *models.WanStatusRecord) error {
	return r.db.Create(rec).Error
}

// List — весь журнал, новые сверху.
func (r *Repo) List() ([]models.WanStatusRecord, error) {
	var out []models.WanStatusRecord
	err := r.db.Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}
