// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package notify

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type recipientFile struct {
	Recipients []recipientEntry `yaml:"recipients"`
}

type recipientEntry struct {
	UserID    string `yaml:"user_id"`
	Username  string `yaml:"username"`
	Phone     string `yaml:"phone"`
	Enabled   bool   `yaml:"enabled"`
	Frequency string `yaml:"frequency"`
}

// LoadRecipients reads SMS subscriptions from a YAML file.
//
// Description:
//
//	The file holds a recipients list with user_id, username, phone,
//	enabled, and an optional frequency as a Go duration ("30m", "2h").
//	An absent frequency falls back to the default at dispatch time.
func LoadRecipients(path string) ([]Recipient, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("notify: reading recipients file: %w", err)
	}

	var file recipientFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("notify: parsing recipients file: %w", err)
	}

	recipients := make([]Recipient, 0, len(file.Recipients))
	for i, entry := range file.Recipients {
		if entry.UserID == "" {
			return nil, fmt.Errorf("notify: recipient %d has no user_id", i)
		}
		var frequency time.Duration
		if entry.Frequency != "" {
			frequency, err = time.ParseDuration(entry.Frequency)
			if err != nil {
				return nil, fmt.Errorf("notify: recipient %q frequency: %w", entry.UserID, err)
			}
		}
		username := entry.Username
		if username == "" {
			username = entry.UserID
		}
		recipients = append(recipients, Recipient{
			UserID:    entry.UserID,
			Username:  username,
			Phone:     entry.Phone,
			Enabled:   entry.Enabled,
			Frequency: frequency,
		})
	}
	return recipients, nil
}
