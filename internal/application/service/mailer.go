package service

import "context"

type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}
