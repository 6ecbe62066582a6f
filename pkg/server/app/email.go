/* Copyright 2025 Leaf Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package app

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/leafnotes/leaf/pkg/server/mailer"
	"github.com/pkg/errors"
)

// WelcomeTmplData is template data for welcome emails
type WelcomeTmplData struct {
	AccountEmail string
	BaseURL      string
}

// ResetPasswordTmplData is template data for reset password emails
type ResetPasswordTmplData struct {
	AccountEmail string
	Token        string
	BaseURL      string
}

// ResetPasswordAlertTmplData is template data for password change notification emails
type ResetPasswordAlertTmplData struct {
	AccountEmail string
	BaseURL      string
}

// AlarmTmplData is template data for reminder notification emails
type AlarmTmplData struct {
	AccountEmail   string
	PageTitle      string
	NotificationID string
	BaseURL        string
}

func getDomainFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrap(err, "parsing url")
	}

	host := u.Hostname()
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return host, nil
	}
	domain := parts[len(parts)-2] + "." + parts[len(parts)-1]

	return domain, nil
}

// GetSenderEmail returns the noreply sender address for the configured web url
func (a *App) GetSenderEmail() (string, error) {
	domain, err := getDomainFromURL(a.WebURL)
	if err != nil {
		return "", errors.Wrap(err, "parsing web url")
	}

	return fmt.Sprintf("noreply@%s", domain), nil
}

func (a *App) sendEmail(templateType, email string, data interface{}) error {
	from, err := a.GetSenderEmail()
	if err != nil {
		return errors.Wrap(err, "getting the sender email")
	}

	subject, body, err := a.EmailTemplates.Execute(templateType, data)
	if err != nil {
		return errors.Wrapf(err, "executing %s template", templateType)
	}

	if err := a.EmailBackend.SendEmail(subject, from, []string{email}, body); err != nil {
		return errors.Wrapf(err, "sending %s email for %s", templateType, email)
	}

	return nil
}

// SendWelcomeEmail sends welcome email
func (a *App) SendWelcomeEmail(email string) error {
	return a.sendEmail(mailer.EmailTypeWelcome, email, WelcomeTmplData{
		AccountEmail: email,
		BaseURL:      a.WebURL,
	})
}

// SendPasswordResetEmail sends password reset email
func (a *App) SendPasswordResetEmail(email, tokenValue string) error {
	if email == "" {
		return ErrEmailRequired
	}

	err := a.sendEmail(mailer.EmailTypeResetPassword, email, ResetPasswordTmplData{
		AccountEmail: email,
		Token:        tokenValue,
		BaseURL:      a.WebURL,
	})
	if err != nil {
		if errors.Cause(err) == mailer.ErrSMTPNotConfigured {
			return ErrInvalidSMTPConfig
		}

		return err
	}

	return nil
}

// SendPasswordResetAlertEmail sends email that notifies users of a password change
func (a *App) SendPasswordResetAlertEmail(email string) error {
	return a.sendEmail(mailer.EmailTypeResetPasswordAlert, email, ResetPasswordAlertTmplData{
		AccountEmail: email,
		BaseURL:      a.WebURL,
	})
}

// SendAlarmEmail sends a reminder notification email
func (a *App) SendAlarmEmail(email, pageTitle, notificationID string) error {
	title := pageTitle
	if title == "" {
		title = "(untitled page)"
	}

	return a.sendEmail(mailer.EmailTypeAlarm, email, AlarmTmplData{
		AccountEmail:   email,
		PageTitle:      title,
		NotificationID: notificationID,
		BaseURL:        a.WebURL,
	})
}
