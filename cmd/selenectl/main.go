// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command selenectl is the terminal client for a running Selene server.
//
// Usage:
//
//	selenectl ask "검색해줘 고양이"
//	selenectl chat
//	selenectl tools
//
// The server address comes from SELENE_SERVER_URL (default
// http://localhost:8080).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

func getServerBaseURL() string {
	if serverURL != "" {
		return serverURL
	}
	if env := os.Getenv("SELENE_SERVER_URL"); env != "" {
		return env
	}
	return "http://localhost:8080"
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "selenectl",
		Short: "Talk to a running Selene assistant server",
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"Server base URL (overrides SELENE_SERVER_URL)")

	askCmd := &cobra.Command{
		Use:   "ask [message...]",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand,
	}
	askCmd.Flags().String("session", "", "Session ID to continue")
	askCmd.Flags().Bool("no-tools", false, "Force a plain chat reply")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat over WebSocket",
		Run:   runChatCommand,
	}
	chatCmd.Flags().String("session", "", "Session ID to resume")

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the server's registered tools",
		Run:   runToolsCommand,
	}

	rootCmd.AddCommand(askCmd, chatCmd, toolsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
