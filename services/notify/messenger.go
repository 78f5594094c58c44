// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package notify delivers SMS farm updates to subscribed users.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// smsTimeout bounds one gateway round trip.
const smsTimeout = 15 * time.Second

// Messenger delivers one message to one phone number.
type Messenger interface {
	Send(ctx context.Context, phone, message string) error
}

// LogMessenger logs instead of sending. Used in test mode and in
// deployments without gateway credentials.
type LogMessenger struct{}

// Send logs the message.
func (LogMessenger) Send(_ context.Context, phone, message string) error {
	preview := message
	if len(preview) > 50 {
		preview = preview[:50]
	}
	slog.Info("test mode sms",
		slog.String("phone", phone),
		slog.String("preview", preview),
	)
	return nil
}

// EgoSMSConfig holds EgoSMS gateway credentials.
type EgoSMSConfig struct {
	APIURL   string `validate:"required,url"`
	Username string `validate:"required"`
	Password string `validate:"required"`
	SenderID string `validate:"required"`

	// TestMode logs messages instead of calling the gateway.
	TestMode bool
}

// Validate checks the configuration.
func (c EgoSMSConfig) Validate() error {
	return validate.Struct(c)
}

// EgoSMS sends messages through the EgoSMS HTTP gateway.
//
// Description:
//
//	The gateway takes a GET request with credentials and the message in
//	the query string and answers with a bare "OK" body on success.
//
// Thread Safety: Safe for concurrent use.
type EgoSMS struct {
	cfg    EgoSMSConfig
	client *http.Client
}

// NewEgoSMS creates a gateway client.
func NewEgoSMS(cfg EgoSMSConfig) (*EgoSMS, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("notify: egosms config: %w", err)
	}
	return &EgoSMS{
		cfg:    cfg,
		client: &http.Client{Timeout: smsTimeout},
	}, nil
}

// Send delivers one message.
func (e *EgoSMS) Send(ctx context.Context, phone, message string) error {
	if e.cfg.TestMode {
		return LogMessenger{}.Send(ctx, phone, message)
	}

	number, err := NormalizePhone(phone)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("username", e.cfg.Username)
	params.Set("password", e.cfg.Password)
	params.Set("number", number)
	params.Set("message", message)
	params.Set("sender", e.cfg.SenderID)
	params.Set("priority", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		e.cfg.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("notify: building sms request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: sms gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return fmt.Errorf("notify: reading gateway response: %w", err)
	}

	// The gateway answers "OK" on success, an error string otherwise.
	reply := strings.TrimSpace(string(body))
	if !strings.EqualFold(reply, "OK") {
		return fmt.Errorf("notify: gateway rejected message: %s", reply)
	}
	slog.Info("sms delivered", slog.String("phone", phone))
	return nil
}

// Balance queries the remaining gateway credits.
func (e *EgoSMS) Balance(ctx context.Context) (string, error) {
	if e.cfg.TestMode {
		return "", nil
	}

	params := url.Values{}
	params.Set("username", e.cfg.Username)
	params.Set("password", e.cfg.Password)
	params.Set("action", "balance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		e.cfg.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("notify: building balance request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("notify: sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("notify: balance check failed with status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("notify: reading gateway response: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}
