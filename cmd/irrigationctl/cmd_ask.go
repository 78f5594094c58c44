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
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// askResponse mirrors the fields of the resolver response the CLI prints.
type askResponse struct {
	Matched        bool    `json:"matched"`
	Type           string  `json:"type"`
	Answer         string  `json:"response"`
	Message        string  `json:"message"`
	Confidence     float64 `json:"confidence"`
	CorrectedQuery string  `json:"corrected_query"`

	Resource *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
	} `json:"resource"`
	Suggestions []struct {
		Title string `json:"title"`
	} `json:"suggestions"`
}

func newAskCommand() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the help assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			var resp askResponse
			err := postJSON("/v1/guide/ask", map[string]string{
				"query":   query,
				"user_id": userID,
			}, &resp)
			if err != nil {
				return err
			}

			if resp.CorrectedQuery != "" && resp.CorrectedQuery != query {
				fmt.Printf("Interpreted as: %s\n\n", resp.CorrectedQuery)
			}
			switch {
			case resp.Answer != "":
				fmt.Println(resp.Answer)
			case resp.Resource != nil:
				fmt.Printf("%s\n%s\n", resp.Resource.Title, resp.Resource.Description)
				if resp.Resource.URL != "" {
					fmt.Printf("URL: %s\n", resp.Resource.URL)
				}
			case resp.Message != "":
				fmt.Println(resp.Message)
			}
			if !resp.Matched && len(resp.Suggestions) > 0 {
				fmt.Println("\nRelated topics:")
				for _, s := range resp.Suggestions {
					fmt.Printf("  - %s\n", s.Title)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID for conversation history")
	return cmd
}
