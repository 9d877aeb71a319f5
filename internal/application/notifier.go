package application

import (
	"context"

	"voice-mascot/internal/domain"
)

type Notifier interface {
	Notify(ctx context.Context, notice domain.Notice) error
}
