package repositories

import (
	"gorm.io/gorm"

	"aptiview/interview/internal/models"
)

type AssetRepository struct {
	DB *gorm.DB
}

func (r *AssetRepository) Create(asset *models.InterviewAsset) error {
	return r.DB.Create(asset).Error
}

// ListByInterview returns assets oldest first.
func (r *AssetRepository) ListByInterview(interviewID uint) ([]models.InterviewAsset, error) {
	assets := []models.InterviewAsset{}
	err := r.DB.Where("interview_id = ?", interviewID).Order("captured_at asc, id asc").Find(&assets).Error
	return assets, err
}
