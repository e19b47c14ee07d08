package service

import (
	"context"
	"fmt"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/advisor/render"
	"golang-stock-advisor/pkg/email"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/telegram"
)

// DeliveryResult is the outcome of one delivery attempt.
type DeliveryResult struct {
	Channel string
	Err     error
}

// DeliveryService renders an advisory and hands it to every configured channel.
type DeliveryService interface {
	Deliver(ctx context.Context, advisory *dto.PortfolioAdvisory) []DeliveryResult
}

type deliveryService struct {
	cfg         *config.Config
	log         *logger.Logger
	notifier    telegram.Notifier
	emailSender email.Sender
}

// NewDeliveryService creates the delivery service. Nil channels are skipped.
func NewDeliveryService(cfg *config.Config, log *logger.Logger, notifier telegram.Notifier, emailSender email.Sender) DeliveryService {
	return &deliveryService{
		cfg:         cfg,
		log:         log,
		notifier:    notifier,
		emailSender: emailSender,
	}
}

// Deliver sends the advisory once per channel. Failures are logged and
// returned, never retried.
func (s *deliveryService) Deliver(ctx context.Context, advisory *dto.PortfolioAdvisory) []DeliveryResult {
	var results []DeliveryResult
	if s.notifier != nil {
		results = append(results, s.record(ctx, "telegram", s.sendTelegram(ctx, advisory)))
	}
	if s.emailSender != nil {
		results = append(results, s.record(ctx, "email", s.sendEmail(ctx, advisory)))
	}
	return results
}

func (s *deliveryService) sendTelegram(ctx context.Context, advisory *dto.PortfolioAdvisory) error {
	messages := telegram.FormatAdvisoryForTelegram(advisory)
	for i, msg := range messages {
		if err := s.notifier.SendMessage(ctx, msg); err != nil {
			return fmt.Errorf("failed to send telegram part %d/%d: %w", i+1, len(messages), err)
		}
	}
	return nil
}

func (s *deliveryService) sendEmail(ctx context.Context, advisory *dto.PortfolioAdvisory) error {
	html, err := render.HTML(advisory)
	if err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}
	return s.emailSender.Send(ctx, email.Message{
		To:      s.cfg.Email.Recipients,
		Subject: render.Subject(advisory),
		HTML:    html,
		Text:    render.Text(advisory),
	})
}

func (s *deliveryService) record(ctx context.Context, channel string, err error) DeliveryResult {
	if err != nil {
		deliveryTotal.WithLabelValues(channel, "failed").Inc()
		s.log.ErrorContext(ctx, "Failed to deliver advisory", logger.StringField("channel", channel), logger.ErrorField(err))
	} else {
		deliveryTotal.WithLabelValues(channel, "ok").Inc()
		s.log.InfoContext(ctx, "Advisory delivered", logger.StringField("channel", channel))
	}
	return DeliveryResult{Channel: channel, Err: err}
}
