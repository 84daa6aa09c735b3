package relay

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Server is a websocket relay room server. Each session id maps to one
// room; the host opens it, guests may only join an open room, and every
// message is fanned out to all participants except its sender.
type Server struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	host  *participant
	peers map[*participant]struct{}
}

type participant struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
	id   string
	role Role
}

func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		rooms: make(map[string]*room),
	}
}

// ServeHTTP handles GET /session/{id}?role=host|guest&peer=<id>.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := strings.CutPrefix(r.URL.Path, "/session/")
	if !ok || sessionID == "" || strings.Contains(sessionID, "/") {
		http.NotFound(w, r)
		return
	}

	role := Role(r.URL.Query().Get("role"))
	if role != RoleHost && role != RoleGuest {
		http.Error(w, "missing or invalid role", http.StatusBadRequest)
		return
	}
	peerID := r.URL.Query().Get("peer")

	s.mu.Lock()
	rm := s.rooms[sessionID]
	switch role {
	case RoleHost:
		if rm != nil && rm.host != nil {
			s.mu.Unlock()
			http.Error(w, "session already has a host", http.StatusConflict)
			return
		}
		if rm == nil {
			rm = &room{peers: make(map[*participant]struct{})}
			s.rooms[sessionID] = rm
		}
	case RoleGuest:
		if rm == nil || rm.host == nil {
			s.mu.Unlock()
			// The guest channel retries with backoff until the host opens
			// the room.
			http.Error(w, "session not open", http.StatusNotFound)
			return
		}
	}
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("relay server: upgrade failed for %s: %v", sessionID, err)
		return
	}

	p := &participant{conn: conn, id: peerID, role: role}

	s.mu.Lock()
	rm = s.rooms[sessionID]
	if rm == nil {
		rm = &room{peers: make(map[*participant]struct{})}
		s.rooms[sessionID] = rm
	}
	if role == RoleHost {
		rm.host = p
	}
	rm.peers[p] = struct{}{}
	s.mu.Unlock()

	log.Printf("relay server: %s joined %s as %s", peerID, sessionID, role)
	s.readLoop(sessionID, p)
}

func (s *Server) readLoop(sessionID string, p *participant) {
	defer s.leave(sessionID, p)

	for {
		var m Message
		if err := p.conn.ReadJSON(&m); err != nil {
			return
		}
		if m.SenderID == "" {
			m.SenderID = p.id
		}
		s.broadcast(sessionID, p, m)
	}
}

func (s *Server) broadcast(sessionID string, from *participant, m Message) {
	s.mu.Lock()
	rm := s.rooms[sessionID]
	if rm == nil {
		s.mu.Unlock()
		return
	}
	peers := make([]*participant, 0, len(rm.peers))
	for p := range rm.peers {
		if p != from {
			peers = append(peers, p)
		}
	}
	s.mu.Unlock()

	for _, p := range peers {
		p.mu.Lock()
		err := p.conn.WriteJSON(m)
		p.mu.Unlock()
		if err != nil {
			log.Printf("relay server: write to %s failed: %v", p.id, err)
		}
	}
}

// leave removes a participant; when the host leaves the room is torn down
// and remaining guest connections are closed.
func (s *Server) leave(sessionID string, p *participant) {
	p.conn.Close()

	s.mu.Lock()
	rm := s.rooms[sessionID]
	if rm == nil {
		s.mu.Unlock()
		return
	}
	delete(rm.peers, p)

	var orphans []*participant
	if rm.host == p {
		for g := range rm.peers {
			orphans = append(orphans, g)
		}
		delete(s.rooms, sessionID)
	} else if len(rm.peers) == 0 {
		delete(s.rooms, sessionID)
	}
	s.mu.Unlock()

	for _, g := range orphans {
		g.conn.Close()
	}
	log.Printf("relay server: %s left %s", p.id, sessionID)
}
