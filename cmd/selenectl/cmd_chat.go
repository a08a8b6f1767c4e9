// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

type chatRequest struct {
	SessionID   string `json:"session_id,omitempty"`
	Message     string `json:"message"`
	EnableTools *bool  `json:"enable_tools,omitempty"`
}

type chatResponse struct {
	Message   string `json:"message"`
	ToolUsed  string `json:"tool_used,omitempty"`
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
}

type toolsResponse struct {
	Tools []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		HighRisk    bool   `json:"high_risk"`
		Params      []struct {
			Name     string `json:"name"`
			Type     string `json:"type"`
			Required bool   `json:"required"`
		} `json:"params"`
	} `json:"tools"`
}

func runAskCommand(cmd *cobra.Command, args []string) {
	message := strings.Join(args, " ")
	sessionID, _ := cmd.Flags().GetString("session")
	noTools, _ := cmd.Flags().GetBool("no-tools")

	req := chatRequest{SessionID: sessionID, Message: message}
	if noTools {
		f := false
		req.EnableTools = &f
	}

	resp, err := postChat(req)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Println(resp.Message)
	if resp.ToolUsed != "" {
		fmt.Printf("\n(tool: %s, session: %s)\n", resp.ToolUsed, resp.SessionID)
	} else {
		fmt.Printf("\n(session: %s)\n", resp.SessionID)
	}
}

func runChatCommand(cmd *cobra.Command, _ []string) {
	sessionID, _ := cmd.Flags().GetString("session")

	wsURL, err := chatSocketURL(sessionID)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", wsURL, err)
	}
	defer conn.Close()

	fmt.Println("Connected. Type a message, or /quit to exit.")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-interrupt
		fmt.Println("\nBye.")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			fmt.Println("Bye.")
			return
		}

		if err := conn.WriteJSON(map[string]string{"message": line}); err != nil {
			log.Fatalf("Write failed: %v", err)
		}
		var reply chatResponse
		if err := conn.ReadJSON(&reply); err != nil {
			log.Fatalf("Read failed: %v", err)
		}
		if reply.ToolUsed != "" {
			fmt.Printf("selene [%s]> %s\n", reply.ToolUsed, reply.Message)
		} else {
			fmt.Printf("selene> %s\n", reply.Message)
		}
	}
}

func runToolsCommand(_ *cobra.Command, _ []string) {
	resp, err := http.Get(getServerBaseURL() + "/v1/assistant/tools")
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Fatalf("Server returned %d: %s", resp.StatusCode, string(body))
	}

	var tools toolsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tools); err != nil {
		log.Fatalf("Decode failed: %v", err)
	}

	for _, tool := range tools.Tools {
		risk := ""
		if tool.HighRisk {
			risk = " [requires confirmation]"
		}
		fmt.Printf("%s%s\n  %s\n", tool.Name, risk, tool.Description)
		for _, p := range tool.Params {
			req := ""
			if p.Required {
				req = ", required"
			}
			fmt.Printf("    %s (%s%s)\n", p.Name, p.Type, req)
		}
	}
}

func postChat(req chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Post(getServerBaseURL()+"/v1/assistant/chat",
		"application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func chatSocketURL(sessionID string) (string, error) {
	base, err := url.Parse(getServerBaseURL())
	if err != nil {
		return "", fmt.Errorf("bad server URL: %w", err)
	}
	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", base.Scheme)
	}
	base.Path = "/v1/assistant/chat/ws"
	if sessionID != "" {
		base.RawQuery = url.Values{"session_id": {sessionID}}.Encode()
	}
	return base.String(), nil
}
