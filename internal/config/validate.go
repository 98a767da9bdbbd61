// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the dotted names of every invalid field.
func (e ValidateErrors) Fields() []string {
	out := make([]string, 0, len(e))
	for _, err := range e {
		out = append(out, err.Field)
	}
	return out
}

var (
	validThemes    = []interface{}{"auto", "dark", "light"}
	validLogLevels = []interface{}{"debug", "info", "warn", "error"}
	validTopics    = []interface{}{"best_practices", "policies", "data"}
)

// Validate checks every section and returns ValidateErrors listing all
// problems, sorted by field name.
func (c *Config) Validate() error {
	var errs ValidateErrors

	collect("server", &errs, validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Server.TimeoutSecs, validation.Min(1), validation.Max(600)),
		validation.Field(&c.Server.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.Server.Burst,
			validation.When(c.Server.RequestsPerSecond > 0, validation.Required, validation.Min(1))),
	))

	collect("chat", &errs, validation.ValidateStruct(&c.Chat,
		validation.Field(&c.Chat.Topics, validation.Each(validation.In(validTopics...))),
	))

	collect("voice", &errs, validation.ValidateStruct(&c.Voice,
		validation.Field(&c.Voice.MaxUploadMB, validation.Min(1), validation.Max(512)),
	))

	collect("ui", &errs, validation.ValidateStruct(&c.UI,
		validation.Field(&c.UI.Theme, validation.Required, validation.In(validThemes...)),
		validation.Field(&c.UI.SidebarWidth, validation.Min(16), validation.Max(80)),
	))

	collect("log", &errs, validation.ValidateStruct(&c.Log,
		validation.Field(&c.Log.Level, validation.Required, validation.In(validLogLevels...)),
	))

	if len(errs) == 0 {
		return nil
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}

// collect flattens ozzo's nested error maps into dotted field names.
func collect(prefix string, errs *ValidateErrors, err error) {
	if err == nil {
		return
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for name, fieldErr := range verrs {
			collect(prefix+"."+name, errs, fieldErr)
		}
		return
	}
	*errs = append(*errs, ValidationError{Field: prefix, Message: err.Error()})
}

// httpURL requires an absolute http(s) URL with a host.
func httpURL(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must use http or https")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}
