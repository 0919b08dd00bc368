package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mixelka/dealfeedback/internal/config"
	"github.com/mixelka/dealfeedback/internal/crm"
	"github.com/mixelka/dealfeedback/internal/database"
	"github.com/mixelka/dealfeedback/internal/email"
	"github.com/mixelka/dealfeedback/internal/feedback"
	"github.com/mixelka/dealfeedback/internal/logging"
	"github.com/mixelka/dealfeedback/internal/parser"
	"github.com/mixelka/dealfeedback/internal/textgen"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger, logFile := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	defer logFile.Close()
	logger.Info("starting deal feedback worker", "module", cfg.CRMModule)

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Open journal
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logJournalStats(ctx, db, logger)

	// CRM: the first token exchange doubles as a credentials check
	auth := crm.NewAuthenticator(crm.AuthConfig{
		ClientID:     cfg.ZohoClientID,
		ClientSecret: cfg.ZohoClientSecret,
		RefreshToken: cfg.ZohoRefreshToken,
		TokenURL:     cfg.ZohoTokenURL,
	}, nil)
	if _, err := auth.Token(ctx); err != nil {
		logger.Error("failed to obtain CRM access token", "error", err)
		os.Exit(1)
	}
	crmClient := crm.NewClient(crm.Config{
		BaseURL: cfg.ZohoAPIURL,
		Timeout: cfg.CRMTimeout,
	}, auth, logger)

	// Mailbox
	if cfg.IMAPServer == "" {
		host, err := email.NewResolver().ResolveIMAPServer(ctx, cfg.EmailUsername, cfg.IMAPPort)
		if err != nil {
			logger.Error("failed to resolve IMAP server", "error", err)
			os.Exit(1)
		}
		cfg.IMAPServer = host
		logger.Info("resolved IMAP server", "server", host)
	}

	mailbox := email.NewGateway(
		email.NewSender(email.SenderConfig{
			Server:      cfg.SMTPAddress(),
			Username:    cfg.EmailUsername,
			Password:    cfg.EmailPassword,
			FromEmail:   cfg.SenderEmail,
			FromName:    cfg.SenderName,
			DialTimeout: cfg.MailDialTimeout,
		}, logger),
		email.NewReader(email.ReaderConfig{
			Username:    cfg.EmailUsername,
			Password:    cfg.EmailPassword,
			Server:      cfg.IMAPAddress(),
			DialTimeout: cfg.MailDialTimeout,
		}, logger),
	)

	// Text generation
	generator, err := textgen.NewClient(textgen.Config{
		APIKey:                  cfg.OpenAIAPIKey,
		Model:                   cfg.OpenAIModel,
		BaseURL:                 cfg.OpenAIBaseURL,
		ComposeInstructionsFile: cfg.ComposeInstructionsFile,
		AnalyzeInstructionsFile: cfg.AnalyzeInstructionsFile,
		Timeout:                 cfg.TextGenTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to create text generator", "error", err)
		os.Exit(1)
	}

	classifier := parser.NewReplyClassifier(parser.ClassifierConfig{
		Terminator:      parser.TerminatorByName(cfg.SummaryTerminator),
		DefaultCategory: cfg.DefaultCategory,
	})

	controller := feedback.NewController(feedback.Deps{
		Store:      crmClient,
		Mailbox:    mailbox,
		TextGen:    generator,
		Classifier: classifier,
		Journal:    db,
		Settings:   feedback.SettingsFromConfig(cfg),
		Logger:     logger,
	})

	logger.Info("worker is running, press Ctrl+C to stop")
	controller.Run(ctx)

	logger.Info("worker stopped")
}

func logJournalStats(ctx context.Context, db *database.DB, logger *slog.Logger) {
	outbound, err := db.CountOutboundByStatus(ctx)
	if err != nil {
		logger.Warn("failed to read journal", "error", err)
		return
	}
	inbound, err := db.CountInboundByStatus(ctx)
	if err != nil {
		logger.Warn("failed to read journal", "error", err)
		return
	}
	logger.Info("journal loaded", "outbound", outbound, "inbound", inbound)
}
