// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command irrigationctl is the administrative CLI for a running
// irrigation server.
//
// Usage:
//
//	irrigationctl ask "how do i turn on the pump"
//	irrigationctl state alice
//	irrigationctl pump alice on
//	irrigationctl intents list
//	irrigationctl intents reload
//	irrigationctl intents export > intents.json
//
// The server address defaults to http://localhost:8080 and can be set
// with --server or the IRRIGATION_SERVER environment variable.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// serverURL holds the --server flag value.
var serverURL string

var httpClient = &http.Client{Timeout: 30 * time.Second}

func main() {
	rootCmd := &cobra.Command{
		Use:   "irrigationctl",
		Short: "Administer a running irrigation server",
	}

	defaultServer := os.Getenv("IRRIGATION_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer,
		"Base URL of the irrigation server")

	rootCmd.AddCommand(newAskCommand())
	rootCmd.AddCommand(newStateCommand())
	rootCmd.AddCommand(newPumpCommand())
	rootCmd.AddCommand(newIntentsCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// getJSON performs a GET and decodes the response into out.
func getJSON(path string, out any) error {
	resp, err := httpClient.Get(serverURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

// postJSON performs a POST with a JSON body and decodes the response
// into out. body and out may be nil.
func postJSON(path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	resp, err := httpClient.Post(serverURL+path, "application/json", reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (%s)", apiErr.Error, apiErr.Code)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
