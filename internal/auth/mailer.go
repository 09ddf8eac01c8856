// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package auth

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, link string) error
}

// LogMailer writes reset links to the log instead of sending mail. It is
// the default for local deployments.
type LogMailer struct {
	Log logrus.FieldLogger
}

// SendPasswordReset implements Mailer.
func (m LogMailer) SendPasswordReset(_ context.Context, email, link string) error {
	if m.Log != nil {
		m.Log.WithFields(logrus.Fields{"email": email, "link": link}).Info("password reset requested")
	}
	return nil
}
