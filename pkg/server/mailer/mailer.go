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

// Package mailer provides a functionality to send emails
package mailer

import (
	"bytes"
	"fmt"
	"io"
	ttemplate "text/template"

	"github.com/leafnotes/leaf/pkg/server/mailer/templates"
	"github.com/pkg/errors"
)

var (
	// EmailTypeResetPassword represents a reset password email
	EmailTypeResetPassword = "reset_password"
	// EmailTypeResetPasswordAlert represents a password change notification email
	EmailTypeResetPasswordAlert = "reset_password_alert"
	// EmailTypeWelcome represents a welcome email
	EmailTypeWelcome = "welcome"
	// EmailTypeAlarm represents a reminder notification email
	EmailTypeAlarm = "alarm"
)

// tmpl is the common interface shared between Template from
// html/template and text/template
type tmpl interface {
	Execute(wr io.Writer, data interface{}) error
}

// template wraps a template with its subject line
type template struct {
	tmpl    tmpl
	subject string
}

// Templates holds the parsed email templates with their subjects
type Templates map[string]template

func (tmpl Templates) get(name string) (template, error) {
	t := tmpl[name]
	if t.tmpl == nil {
		return template{}, errors.Errorf("unsupported template '%s'", name)
	}

	return t, nil
}

func (tmpl Templates) set(name string, t tmpl, subject string) {
	tmpl[name] = template{
		tmpl:    t,
		subject: subject,
	}
}

// NewTemplates initializes templates
func NewTemplates() Templates {
	T := Templates{}

	for name, subject := range map[string]string{
		EmailTypeWelcome:            "Welcome to Leaf!",
		EmailTypeResetPassword:      "Reset your Leaf password",
		EmailTypeResetPasswordAlert: "Your Leaf password was changed",
		EmailTypeAlarm:              "Leaf reminder",
	} {
		t, err := initTextTmpl(name)
		if err != nil {
			panic(errors.Wrapf(err, "initializing %s template", name))
		}

		T.set(name, t, subject)
	}

	return T
}

// initTextTmpl returns a template instance by parsing the template with the given name
func initTextTmpl(templateName string) (tmpl, error) {
	filename := fmt.Sprintf("%s.txt", templateName)

	content, err := templates.Files.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "reading template")
	}

	t := ttemplate.New(templateName)
	if _, err = t.Parse(string(content)); err != nil {
		return nil, errors.Wrap(err, "parsing template")
	}

	return t, nil
}

// Execute executes the template and returns the subject, body, and any error
func (tmpl Templates) Execute(name string, data interface{}) (subject, body string, err error) {
	t, err := tmpl.get(name)
	if err != nil {
		return "", "", errors.Wrap(err, "getting template")
	}

	buf := new(bytes.Buffer)
	if err := t.tmpl.Execute(buf, data); err != nil {
		return "", "", errors.Wrap(err, "executing the template")
	}

	return t.subject, buf.String(), nil
}
