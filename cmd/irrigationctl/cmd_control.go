// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "state <user>",
		Short: "Print the device state for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var state json.RawMessage
			err := postJSON("/v1/control/action", map[string]string{
				"action":  "get_state",
				"user_id": args[0],
			}, &state)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		},
	}
}

func newPumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pump <user> <on|off>",
		Short: "Toggle the pump (manual mode only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			var state bool
			switch args[1] {
			case "on":
				state = true
			case "off":
				state = false
			default:
				return fmt.Errorf("pump state must be on or off, got %q", args[1])
			}

			var resp struct {
				Pump string `json:"pump"`
			}
			err := postJSON("/v1/control/action", map[string]any{
				"action":  "toggle_pump",
				"user_id": args[0],
				"state":   state,
			}, &resp)
			if err != nil {
				return err
			}
			fmt.Printf("Pump is %s\n", resp.Pump)
			return nil
		},
	}
}
