package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CaptainRedCodes/CareOps/internal/automations/domain"
)

func TestRenderTemplateSubstitutesPlaceholders(t *testing.T) {
	trigger := map[string]any{
		"contact_name":  "Jamie Soto",
		"contact_email": "jamie@example.com",
		"service_name":  "Deep Clean",
		"booking_date":  "September 07, 2026",
		"booking_time":  "09:00 AM",
	}

	got := domain.RenderTemplate("Hi {{name}}, your {{service}} is on {{date}} at {{time}}.", trigger)
	assert.Equal(t, "Hi Jamie Soto, your Deep Clean is on September 07, 2026 at 09:00 AM.", got)
}

func TestRenderTemplateNameFallsBackToCustomer(t *testing.T) {
	got := domain.RenderTemplate("Hi {{name}}!", map[string]any{})
	assert.Equal(t, "Hi Customer!", got)
}

func TestRenderTemplateLeavesUnknownPlaceholdersVerbatim(t *testing.T) {
	got := domain.RenderTemplate("Use code {{discount}} today, {{name}}.", map[string]any{
		"contact_name": "Jamie",
	})
	assert.Equal(t, "Use code {{discount}} today, Jamie.", got)
}

func TestRenderTemplateMissingFieldsRenderEmpty(t *testing.T) {
	got := domain.RenderTemplate("Service: {{service}}.", map[string]any{})
	assert.Equal(t, "Service: .", got)
}

func TestRenderTemplateFormatsNumbers(t *testing.T) {
	// JSON round-trips turn numbers into float64.
	got := domain.RenderTemplate("{{quantity}} x {{item}}", map[string]any{
		"quantity":  float64(3),
		"item_name": "Towels",
	})
	assert.Equal(t, "3 x Towels", got)

	got = domain.RenderTemplate("{{quantity}}", map[string]any{"quantity": 2.5})
	assert.Equal(t, "2.5", got)
}
