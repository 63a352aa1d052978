package email

import (
	"context"
	"testing"
	"time"

	"itemcatalog/internal/config"
	"itemcatalog/internal/export"
	"itemcatalog/internal/models"

	"github.com/stretchr/testify/assert"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Format:      export.YAML,
		Document:    []byte("Category: []\n"),
		Stats:       &models.Stats{TotalCategories: 3, TotalItems: 12},
		GeneratedAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestNewServiceDisabledWithoutCredentials(t *testing.T) {
	s := NewService(&config.Config{MailgunDomain: "mg.example.com"})
	assert.False(t, s.IsEnabled())

	err := s.SendCatalogExport(context.Background(), "ops@example.com", testSnapshot())
	assert.EqualError(t, err, "email service is not configured")
}

func TestNewServiceEnabled(t *testing.T) {
	s := NewService(&config.Config{MailgunDomain: "mg.example.com", MailgunAPIKey: "key"})
	assert.True(t, s.IsEnabled())
}

func TestSnapshotFilename(t *testing.T) {
	assert.Equal(t, "catalog-20240501-093000.yaml", testSnapshot().Filename())
}

func TestExportBodies(t *testing.T) {
	snapshot := testSnapshot()

	html := generateExportHTML(snapshot)
	assert.Contains(t, html, "<span class=\"label\">Categories:</span> 3")
	assert.Contains(t, html, "<span class=\"label\">Items:</span> 12")
	assert.Contains(t, html, "catalog-20240501-093000.yaml")

	text := generateExportText(snapshot)
	assert.Contains(t, text, "Format: yaml")
	assert.Contains(t, text, "2024-05-01 09:30 UTC")
}
