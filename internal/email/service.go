package email

import (
	"context"
)

type Service interface {
	SendExpiryReminder(ctx context.Context, to string, daysLeft int) error
	SendExpiredNotice(ctx context.Context, to string) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}
