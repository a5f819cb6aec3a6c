package server

import (
	"time"

	"github.com/openroad/roadcall/alert"
	"github.com/openroad/roadcall/monitor"
)

// Event message types pushed over /ws.
const (
	msgTypeTick       = "tick"
	msgTypeAlert      = "alert"
	msgTypeAssignment = "assignment"
	msgTypeEscalation = "escalation"
)

// broadcast fans a message out to every subscriber without blocking: a
// subscriber with a full buffer misses the message rather than stalling the
// engine.
func (s *Server) broadcast(msg interface{}) int {
	s.mu.RLock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	sent := 0
	for _, c := range clients {
		if c.trySend(msg) {
			sent++
		}
	}
	return sent
}

// BroadcastTick implements monitor.TickBroadcaster.
func (s *Server) BroadcastTick(status monitor.TickerStatus) {
	s.broadcast(map[string]interface{}{
		"type":   msgTypeTick,
		"ticker": status,
	})
}

// AlertDispatched implements alert.EventSink.
func (s *Server) AlertDispatched(a alert.Alert) {
	s.broadcast(map[string]interface{}{
		"type":    msgTypeAlert,
		"job_id":  a.JobID,
		"stage":   a.StageName,
		"channel": a.Channel,
		"message": a.Message,
	})
}

// JobAssigned implements assign.EventSink.
func (s *Server) JobAssigned(jobID, contractorID string) {
	s.broadcast(map[string]interface{}{
		"type":          msgTypeAssignment,
		"job_id":        jobID,
		"contractor_id": contractorID,
		"at":            time.Now().UTC(),
	})
}

// JobEscalated implements assign.EventSink.
func (s *Server) JobEscalated(jobID, reason string) {
	s.broadcast(map[string]interface{}{
		"type":   msgTypeEscalation,
		"job_id": jobID,
		"reason": reason,
		"at":     time.Now().UTC(),
	})
}
