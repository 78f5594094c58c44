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

func newIntentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intents",
		Short: "Manage the assistant's intent definitions",
	}
	cmd.AddCommand(newIntentsListCommand())
	cmd.AddCommand(newIntentsReloadCommand())
	cmd.AddCommand(newIntentsExportCommand())
	return cmd
}

func newIntentsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded intents",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var resp struct {
				Intents []struct {
					Category string `json:"category"`
					Tag      string `json:"tag"`
					Patterns int    `json:"patterns"`
				} `json:"intents"`
				Count int `json:"count"`
			}
			if err := getJSON("/v1/guide/intents", &resp); err != nil {
				return err
			}

			for _, intent := range resp.Intents {
				fmt.Printf("%-12s %-24s %d patterns\n",
					intent.Category, intent.Tag, intent.Patterns)
			}
			fmt.Printf("\n%d intents loaded\n", resp.Count)
			return nil
		},
	}
}

func newIntentsReloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload intent definitions from the server's intent directory",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var resp struct {
				Reloaded bool `json:"reloaded"`
				Intents  int  `json:"intents"`
			}
			if err := postJSON("/v1/guide/intents/reload", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("Reloaded %d intents\n", resp.Intents)
			return nil
		},
	}
}

func newIntentsExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export the full intent set as JSON",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var export json.RawMessage
			if err := getJSON("/v1/guide/intents/export", &export); err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(export)
		},
	}
}
