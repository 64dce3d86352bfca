package services

import (
	"log"

	"payments-service/internal/crypto"
	"payments-service/internal/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// SweepService periodically disables duplicate remote webhook endpoints.
// List-then-create during credential saves is not transactional against the
// provider, so two concurrent saves can each register an endpoint; the sweep
// undoes the extras.
type SweepService struct {
	DB        *gorm.DB
	Registrar *WebhookRegistrar
	Clients   ClientFactory
}

func NewSweepService(db *gorm.DB, registrar *WebhookRegistrar) *SweepService {
	return &SweepService{
		DB:        db,
		Registrar: registrar,
		Clients:   NewStripeClientFromCredential,
	}
}

// SweepAll walks every credential with a registered webhook and disables
// surplus enabled endpoints on its callback URL.
func (s *SweepService) SweepAll() {
	var creds []models.GatewayCredential
	if err := s.DB.Where("webhook_id <> ''").Find(&creds).Error; err != nil {
		log.Printf("Sweep: failed to list credentials: %v", err)
		return
	}

	for _, cred := range creds {
		var tenant models.Tenant
		if err := s.DB.Where("id = ?", cred.TenantId).First(&tenant).Error; err != nil {
			log.Printf("Sweep: tenant %d not found: %v", cred.TenantId, err)
			continue
		}

		secretKey, err := crypto.SafeDecrypt(cred.SecretKey, EncryptionContext)
		if err != nil {
			log.Printf("Sweep: cannot decrypt credentials for tenant %d: %v", cred.TenantId, err)
			continue
		}

		disabled, err := s.Registrar.SweepDuplicates(s.Clients(secretKey), CallbackURL(tenant.Subdomain), cred.WebhookId)
		if err != nil {
			log.Printf("Sweep: tenant %d: %v", cred.TenantId, err)
			continue
		}
		if disabled > 0 {
			log.Printf("Sweep: disabled %d duplicate endpoint(s) for tenant %d", disabled, cred.TenantId)
		}
	}
}

// StartScheduler initializes the cron job to run hourly
func (s *SweepService) StartScheduler() {
	c := cron.New()
	// Run hourly: "0 * * * *"
	_, err := c.AddFunc("0 * * * *", func() {
		log.Println("Running scheduled webhook endpoint sweep...")
		s.SweepAll()
	})
	if err != nil {
		log.Printf("Error scheduling webhook sweep: %v", err)
		return
	}
	c.Start()
	log.Println("Webhook Sweep Scheduler started (Hourly)")
}
