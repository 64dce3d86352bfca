package services

import (
	"errors"

	"payments-service/internal/models"

	"gorm.io/gorm"
)

// TenantService resolves tenants for the webhook pipeline. Tenant CRUD lives
// elsewhere in the platform; this is read-only.
type TenantService struct {
	DB *gorm.DB
}

func NewTenantService(db *gorm.DB) *TenantService {
	return &TenantService{DB: db}
}

func (s *TenantService) FindBySubdomain(subdomain string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.DB.Where("subdomain = ?", subdomain).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownTenant
		}
		return nil, err
	}
	return &tenant, nil
}
