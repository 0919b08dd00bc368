package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Summary terminator presets
const (
	TerminatorLabelWord = "labelword"
	TerminatorCapital   = "capital"
	TerminatorLabels    = "labels"
)

// FieldMap maps the deal attributes used by the feedback cycle to CRM API field names
type FieldMap struct {
	State      string `env:"STATE" envDefault:"Feedback_Email"`
	Email      string `env:"EMAIL" envDefault:"E_Mail"`
	Salutation string `env:"SALUTATION" envDefault:"Anrede"`
	FirstName  string `env:"FIRST_NAME" envDefault:"Vorname"`
	LastName   string `env:"LAST_NAME" envDefault:"Nachname"`
	Stage      string `env:"STAGE" envDefault:"Stage"`
	Service    string `env:"SERVICE" envDefault:"Leistung_Lieferung"`
	Note       string `env:"NOTE" envDefault:"Projektmanager_Feedback"`
	Created    string `env:"CREATED" envDefault:"Created_Time"`
	Category   string `env:"CATEGORY" envDefault:"Grund"`
	Summary    string `env:"SUMMARY" envDefault:"Zusammenfassung_des_Feedbacks"` // "-" disables summary write-back
}

// Config application configuration
type Config struct {
	// CRM
	ZohoClientID     string        `env:"ZOHO_CLIENT_ID,required,notEmpty"`
	ZohoClientSecret string        `env:"ZOHO_CLIENT_SECRET,required,notEmpty"`
	ZohoRefreshToken string        `env:"ZOHO_REFRESH_TOKEN,required,notEmpty"`
	ZohoAPIURL       string        `env:"ZOHO_API_URL" envDefault:"https://www.zohoapis.eu/crm"`
	ZohoTokenURL     string        `env:"ZOHO_TOKEN_URL" envDefault:"https://accounts.zoho.eu/oauth/v2/token"`
	CRMModule        string        `env:"CRM_MODULE" envDefault:"Deals"`
	CRMTimeout       time.Duration `env:"CRM_TIMEOUT" envDefault:"30s"`
	Fields           FieldMap      `envPrefix:"CRM_FIELD_"`

	// Feedback state vocabulary
	TriggerValue string `env:"FEEDBACK_TRIGGER_VALUE" envDefault:"Senden"`
	SentValue    string `env:"FEEDBACK_SENT_VALUE" envDefault:"Gesendet"`

	// Mail
	SMTPServer         string        `env:"SMTP_SERVER,required,notEmpty"`
	SMTPPort           int           `env:"SMTP_PORT" envDefault:"465"`
	IMAPServer         string        `env:"IMAP_SERVER"` // resolved from EMAIL_USERNAME when empty
	IMAPPort           int           `env:"IMAP_PORT" envDefault:"993"`
	EmailUsername      string        `env:"EMAIL_USERNAME,required,notEmpty"`
	EmailPassword      string        `env:"EMAIL_PASSWORD,required,notEmpty"`
	SenderEmail        string        `env:"SENDER_EMAIL,required,notEmpty"`
	SenderName         string        `env:"SENDER_NAME" envDefault:"Vertrieb Erdbaron"`
	IMAPFolder         string        `env:"IMAP_FOLDER" envDefault:"INBOX"`
	ReplySubjectFilter string        `env:"REPLY_SUBJECT_FILTER" envDefault:"Feedback erbeten"`
	MailDialTimeout    time.Duration `env:"MAIL_DIAL_TIMEOUT" envDefault:"30s"`
	MessageIDDomain    string        `env:"MESSAGE_ID_DOMAIN"` // defaults to the SENDER_EMAIL domain

	// Text generation
	OpenAIAPIKey            string        `env:"OPENAI_API_KEY,required,notEmpty"`
	OpenAIModel             string        `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	OpenAIBaseURL           string        `env:"OPENAI_BASE_URL"`
	ComposeInstructionsFile string        `env:"COMPOSE_INSTRUCTIONS_FILE"`
	AnalyzeInstructionsFile string        `env:"ANALYZE_INSTRUCTIONS_FILE"`
	TextGenTimeout          time.Duration `env:"TEXTGEN_TIMEOUT" envDefault:"2m"`

	// Controller
	PollInterval         time.Duration `env:"POLL_INTERVAL" envDefault:"60s"`
	Timezone             string        `env:"TIMEZONE" envDefault:"Europe/Berlin"`
	DefaultSubjectPrefix string        `env:"DEFAULT_SUBJECT_PREFIX" envDefault:"Feedback erbeten"`
	DefaultCategory      string        `env:"DEFAULT_CATEGORY" envDefault:"Andere"`
	SummaryTerminator    string        `env:"SUMMARY_TERMINATOR" envDefault:"labelword"`
	InboundSubject       string        `env:"INBOUND_SUBJECT" envDefault:"Re: Feedback"`

	// Database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/feedback.db"`

	// Logging
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
	LogFile       string `env:"LOG_FILE" envDefault:"logs/email_processor.log"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"10"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`

	location *time.Location
}

// Location returns the loaded TIMEZONE
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// SMTPAddress returns host:port of the SMTP server
func (c *Config) SMTPAddress() string {
	return net.JoinHostPort(c.SMTPServer, strconv.Itoa(c.SMTPPort))
}

// IMAPAddress returns host:port of the IMAP server
func (c *Config) IMAPAddress() string {
	return net.JoinHostPort(c.IMAPServer, strconv.Itoa(c.IMAPPort))
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// finalize validates values and fills derived settings
func (c *Config) finalize() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc

	switch c.SummaryTerminator {
	case TerminatorLabelWord, TerminatorCapital, TerminatorLabels:
	default:
		return fmt.Errorf("unknown SUMMARY_TERMINATOR %q", c.SummaryTerminator)
	}

	if c.Fields.Summary == "-" {
		c.Fields.Summary = ""
	}

	if c.Fields.State == "" || c.Fields.Email == "" || c.Fields.Category == "" {
		return fmt.Errorf("CRM_FIELD_STATE, CRM_FIELD_EMAIL and CRM_FIELD_CATEGORY must not be empty")
	}

	if c.TriggerValue == c.SentValue {
		return fmt.Errorf("FEEDBACK_TRIGGER_VALUE and FEEDBACK_SENT_VALUE must differ")
	}

	if c.MessageIDDomain == "" {
		if i := strings.LastIndex(c.SenderEmail, "@"); i >= 0 && i < len(c.SenderEmail)-1 {
			c.MessageIDDomain = c.SenderEmail[i+1:]
		} else {
			c.MessageIDDomain = "localhost"
		}
	}

	return nil
}
