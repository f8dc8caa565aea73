package server

import (
	"encoding/json"
	"net/http"

	"rl-dashboard/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
//
// The hub loop is the single owner of the client and channel maps: register,
// unregister, inbound commands and broadcasts all flow through its channels,
// so membership needs no locking.
// -----------------------------------------------------------------------------

type clientCommand struct {
	client *Client
	raw    []byte
}

// -----------------------------------------------------------------------------

// runHub is the main hub loop.
func (s *SimServer) runHub() {
	for {
		select {
		case <-s.done:
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.dropClient(client)
			}

		case cmd := <-s.commands:
			s.handleClientCommand(cmd.client, cmd.raw)

		case message := <-s.broadcast:
			for client := range s.channels[message.Channel] {
				select {
				case client.send <- message.Frame:
					// Frame queued
				default:
					// Client too slow, disconnect to prevent hub blocking
					s.dropClient(client)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

// dropClient removes a client from every channel and closes its queue.
// Called from the hub loop only.
func (s *SimServer) dropClient(client *Client) {
	for channel, members := range s.channels {
		delete(members, client)
		if len(members) == 0 {
			delete(s.channels, channel)
		}
	}
	delete(s.clients, client)
	close(client.send)
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// handleClientCommand processes one subscribe/unsubscribe/ping frame.
// Called from the hub loop only.
func (s *SimServer) handleClientCommand(client *Client, raw []byte) {
	// Commands and unregisters arrive on separate channels, so a frame can
	// still be queued after the hub dropped its sender. Its send queue is
	// closed by then; discard the command instead of replying into it.
	if _, ok := s.clients[client]; !ok {
		return
	}

	var frame models.MControlFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.Logger.Warning("Undecodable client frame, dropping: %v", err)
		return
	}

	switch frame.Type {
	case models.MsgSubscribe:
		if frame.Channel == "" {
			return
		}
		if s.channels[frame.Channel] == nil {
			s.channels[frame.Channel] = make(map[*Client]struct{})
		}
		s.channels[frame.Channel][client] = struct{}{}
		s.reply(client, &models.MControlFrame{Type: models.MsgSubscribed, Channel: frame.Channel})

	case models.MsgUnsubscribe:
		if members := s.channels[frame.Channel]; members != nil {
			delete(members, client)
			if len(members) == 0 {
				delete(s.channels, frame.Channel)
			}
		}
		s.reply(client, &models.MControlFrame{Type: models.MsgUnsubscribed, Channel: frame.Channel})

	case models.MsgPing:
		s.reply(client, &models.MControlFrame{Type: models.MsgPong})

	default:
		s.Logger.Debug("Ignoring client frame type %q", frame.Type)
	}
}

// -----------------------------------------------------------------------------

func (s *SimServer) reply(client *Client, frame *models.MControlFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	select {
	case client.send <- data:
	default:
		// Client buffer full, the ack is lost; the hub broadcast path will
		// drop the client on its next full queue.
	}
}

// -----------------------------------------------------------------------------
// Broadcast helpers (callable from any goroutine)
// -----------------------------------------------------------------------------

// Broadcast queues one frame for every subscriber of a channel.
func (s *SimServer) Broadcast(channel string, frame interface{}) {
	data, err := json.Marshal(frame)
	if err != nil {
		s.Logger.Error("Failed to marshal broadcast frame: %v", err)
		return
	}

	s.broadcast <- &MBroadcast{Channel: channel, Frame: data}
}

// -----------------------------------------------------------------------------
// WebSocket Handler
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *SimServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan []byte, 256),
	}

	s.register <- client

	go client.writePump()
	go client.readPump()
}
