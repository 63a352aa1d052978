package email

import (
	"context"
	"fmt"
	"time"

	"itemcatalog/internal/config"
	"itemcatalog/internal/export"
	"itemcatalog/internal/logger"
	"itemcatalog/internal/models"

	"github.com/mailgun/mailgun-go/v5"
)

type Service struct {
	client      mailgun.Mailgun
	domain      string
	senderEmail string
	senderName  string
	enabled     bool
}

func NewService(cfg *config.Config) *Service {
	enabled := cfg.MailgunDomain != "" && cfg.MailgunAPIKey != ""

	var client mailgun.Mailgun
	if enabled {
		client = mailgun.NewMailgun(cfg.MailgunAPIKey)
	}

	return &Service{
		client:      client,
		domain:      cfg.MailgunDomain,
		senderEmail: cfg.MailgunSenderEmail,
		senderName:  cfg.MailgunSenderName,
		enabled:     enabled,
	}
}

func (s *Service) IsEnabled() bool {
	return s.enabled
}

// Snapshot describes one exported catalog document.
type Snapshot struct {
	Format      export.Format
	Document    []byte
	Stats       *models.Stats
	GeneratedAt time.Time
}

func (s Snapshot) Filename() string {
	return "catalog-" + s.GeneratedAt.UTC().Format("20060102-150405") + s.Format.Extension()
}

// SendCatalogExport mails a catalog export to a recipient, with the
// document attached.
func (s *Service) SendCatalogExport(ctx context.Context, to string, snapshot Snapshot) error {
	if !s.enabled {
		return fmt.Errorf("email service is not configured")
	}

	subject := fmt.Sprintf("Catalog export (%s)", snapshot.GeneratedAt.UTC().Format("2006-01-02"))

	message := mailgun.NewMessage(
		s.domain,
		fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail),
		subject,
		generateExportText(snapshot),
		to,
	)
	message.SetHTML(generateExportHTML(snapshot))
	message.AddBufferAttachment(snapshot.Filename(), snapshot.Document)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.client.Send(ctx, message); err != nil {
		return fmt.Errorf("failed to send catalog export to %s: %w", to, err)
	}

	logger.Info("Catalog export sent", "email", to, "format", string(snapshot.Format))
	return nil
}
