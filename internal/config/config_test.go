package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ZOHO_CLIENT_ID", "client")
	t.Setenv("ZOHO_CLIENT_SECRET", "secret")
	t.Setenv("ZOHO_REFRESH_TOKEN", "refresh")
	t.Setenv("SMTP_SERVER", "smtp.example.com")
	t.Setenv("EMAIL_USERNAME", "vertrieb@example.com")
	t.Setenv("EMAIL_PASSWORD", "pw")
	t.Setenv("SENDER_EMAIL", "vertrieb@example.com")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Deals", cfg.CRMModule)
	assert.Equal(t, "Feedback_Email", cfg.Fields.State)
	assert.Equal(t, "Zusammenfassung_des_Feedbacks", cfg.Fields.Summary)
	assert.Equal(t, "Senden", cfg.TriggerValue)
	assert.Equal(t, "Gesendet", cfg.SentValue)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, "example.com", cfg.MessageIDDomain)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.Equal(t, "smtp.example.com:465", cfg.SMTPAddress())
	assert.Equal(t, TerminatorLabelWord, cfg.SummaryTerminator)
}

func TestLoadFieldOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CRM_FIELD_STATE", "Feedback_Status")
	t.Setenv("CRM_FIELD_SUMMARY", "-")
	t.Setenv("MESSAGE_ID_DOMAIN", "mail.example.org")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Feedback_Status", cfg.Fields.State)
	assert.Empty(t, cfg.Fields.Summary)
	assert.Equal(t, "mail.example.org", cfg.MessageIDDomain)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero interval", "POLL_INTERVAL", "0s"},
		{"bad timezone", "TIMEZONE", "Mars/Olympus"},
		{"unknown terminator", "SUMMARY_TERMINATOR", "fuzzy"},
		{"same state values", "FEEDBACK_SENT_VALUE", "Senden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
