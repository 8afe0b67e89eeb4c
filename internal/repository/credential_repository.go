package repository

import (
	"context"
	"edu_bridge_backend/internal/model"

	"gorm.io/gorm"
)

type CredentialRepository struct {
	DB *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{DB: db}
}

func (r *CredentialRepository) Create(ctx context.Context, cred *model.Credential) error {
	return r.DB.WithContext(ctx).Create(cred).Error
}

func (r *CredentialRepository) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	var cred model.Credential
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&cred).Error
	if err != nil {
		return nil, err
	}
	return &cred, nil
}
