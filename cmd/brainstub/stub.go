package main

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// command is a parsed control message.
type command struct {
	kind   string // "echo", "close" or "drop"
	code   int
	reason string
}

// parseCommand interprets an inbound text message. Anything that is not a
// well-formed control command is echoed.
func parseCommand(msg string) command {
	fields := strings.Fields(msg)
	if len(fields) == 0 {
		return command{kind: "echo"}
	}

	switch fields[0] {
	case "drop":
		if len(fields) == 1 {
			return command{kind: "drop"}
		}
	case "close":
		if len(fields) < 2 {
			break
		}
		code, err := strconv.Atoi(fields[1])
		if err != nil || code < 1000 || code > 4999 {
			break
		}
		return command{kind: "close", code: code, reason: strings.Join(fields[2:], " ")}
	}
	return command{kind: "echo"}
}

// newStubHandler upgrades requests and runs the echo loop for each client.
func newStubHandler(logger *slog.Logger) http.Handler {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		log := logger.With("remote", r.RemoteAddr, "user_agent", r.UserAgent())
		log.Info("client connected")

		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				log.Info("client gone", "error", err)
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}

			cmd := parseCommand(string(data))
			switch cmd.kind {
			case "drop":
				log.Info("dropping connection")
				return
			case "close":
				log.Info("closing connection", "code", cmd.code, "reason", cmd.reason)
				conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(cmd.code, cmd.reason),
					time.Now().Add(writeTimeout),
				)
				// Give the client a moment to reply before tearing down
				conn.SetReadDeadline(time.Now().Add(time.Second))
				conn.ReadMessage()
				return
			default:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Warn("echo failed", "error", err)
					return
				}
			}
		}
	})
}
