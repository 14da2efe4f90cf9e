package classifyapi

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamReadLimit  = 1 << 20 // 1MB, a dinucleotide step's atom list is small but batches may not be
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamResult is one outbound frame: the classification (or error) of the
// Index-th inbound frame, each inbound frame being a single stepRequest.
// The connection stays open and accepts any number of steps, replying to
// each with a streamResult frame in turn — this is the long-running
// counterpart to POST /api/v1/classify/steps for callers feeding a
// structure file step by step rather than buffering the whole batch.
type streamResult struct {
	Index  int                     `json:"index"`
	Result *classifiedStepResponse `json:"result,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// handleClassifyStream upgrades to a WebSocket and classifies each
// incoming step request as it arrives, writing back one streamResult per
// message, in order, until the client closes the connection.
func (s *Server) handleClassifyStream(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[classifyapi] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(streamReadLimit)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		return nil
	})

	done := make(chan struct{})
	go s.streamPinger(conn, done)
	defer close(done)

	for index := 0; ; index++ {
		var req stepRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[classifyapi] stream read error: %v", err)
			}
			return
		}

		result := streamResult{Index: index}
		cs, err := s.classifyCached(toStep(req))
		if err != nil {
			result.Error = err.Error()
		} else {
			resp := toResponse(cs)
			result.Result = &resp
		}

		conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(result); err != nil {
			log.Printf("[classifyapi] stream write error: %v", err)
			return
		}
	}
}

func (s *Server) streamPinger(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

