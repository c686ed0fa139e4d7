package service

import (
	"context"
	"log/slog"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
)

// LogNotifier writes reset tokens to the log instead of emailing them.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, user *models.User, token string) error {
	n.logger.InfoContext(ctx, "password reset requested",
		"user_id", user.ID,
		"email", user.Email,
		"reset_token", token,
	)
	return nil
}
