package realtime

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

// Verifier resolves a bearer credential to a member id.
type Verifier interface {
	Verify(ctx context.Context, credential string) (uuid.UUID, error)
}

// FamilyResolver returns the family a member belongs to.
type FamilyResolver interface {
	FamilyOf(ctx context.Context, memberID uuid.UUID) (uuid.UUID, error)
}

type HandlerConfig struct {
	Log           *logger.Logger
	Registry      *Registry
	Verifier      Verifier
	Families      FamilyResolver
	VerifyTimeout time.Duration
	WriteTimeout  time.Duration
	QueueSize     int
}

// Handler upgrades connections for one channel kind. The credential comes from the
// Authorization header or the token query parameter; a connection that fails verification
// is closed with CloseNotAcceptable before it is registered.
type Handler struct {
	cfg  HandlerConfig
	log  *logger.Logger
	kind string
}

func NewHandler(kind string, cfg HandlerConfig) *Handler {
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Handler{cfg: cfg, log: cfg.Log.With("component", "RealtimeHandler", "kind", kind), kind: kind}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	credential := CredentialFromRequest(r)
	hw := &hijackWriter{ResponseWriter: w}
	srv := websocket.Server{
		// Origin policy is enforced by the CORS middleware in front of this handler.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(conn *websocket.Conn) {
			h.serve(conn, hw.raw, credential)
		},
	}
	srv.ServeHTTP(hw, r)
}

// hijackWriter keeps the socket handed to the websocket server so a transport can
// close it without going through the websocket's own write lock.
type hijackWriter struct {
	http.ResponseWriter
	raw net.Conn
}

func (w *hijackWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer cannot hijack")
	}
	conn, rw, err := hj.Hijack()
	if err == nil {
		w.raw = conn
	}
	return conn, rw, err
}

func (h *Handler) serve(conn *websocket.Conn, raw net.Conn, credential string) {
	transport := &wsTransport{conn: conn, raw: raw, writeTimeout: h.cfg.WriteTimeout}
	peer, ok := h.accept(conn.Request().Context(), transport, credential)
	if !ok {
		return
	}
	defer peer.Close(CloseNormal)
	go peer.Run()

	// Clients only listen; reading detects disconnects.
	for {
		var discard string
		if err := websocket.Message.Receive(conn, &discard); err != nil {
			if !errors.Is(err, io.EOF) {
				h.log.Debug("Realtime read ended", "peer_id", peer.ID, "error", err)
			}
			return
		}
		select {
		case <-peer.Done():
			return
		default:
		}
	}
}

// accept verifies the credential and registers a peer over t, or closes t as not acceptable.
func (h *Handler) accept(ctx context.Context, t Transport, credential string) (*Peer, bool) {
	memberID, familyID, err := h.authenticate(ctx, credential)
	if err != nil {
		h.log.Info("Realtime handshake rejected", "error", err)
		_ = t.Close(CloseNotAcceptable)
		return nil, false
	}
	peer := NewPeer(memberID, familyID, t, h.cfg.QueueSize)
	h.cfg.Registry.Add(Channel(h.kind, familyID), peer)
	return peer, true
}

func (h *Handler) authenticate(ctx context.Context, credential string) (uuid.UUID, uuid.UUID, error) {
	if credential == "" {
		return uuid.Nil, uuid.Nil, errors.New("missing credential")
	}
	if h.cfg.Verifier == nil || h.cfg.Families == nil {
		return uuid.Nil, uuid.Nil, errors.New("realtime auth not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, h.cfg.VerifyTimeout)
	defer cancel()

	memberID, err := h.cfg.Verifier.Verify(ctx, credential)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	familyID, err := h.cfg.Families.FamilyOf(ctx, memberID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if familyID == uuid.Nil {
		return uuid.Nil, uuid.Nil, errors.New("member has no family")
	}
	return memberID, familyID, nil
}

// CredentialFromRequest reads a bearer token from the Authorization header, then the token query.
func CredentialFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

const closeFrameTimeout = time.Second

type wsTransport struct {
	mu           sync.Mutex // one frame at a time
	conn         *websocket.Conn
	raw          net.Conn
	writeTimeout time.Duration
	closed       atomic.Bool
	closeOnce    sync.Once
}

func (t *wsTransport) WriteMessage(payload []byte) error {
	if t.closed.Load() {
		return io.ErrClosedPipe
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return io.ErrClosedPipe
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return websocket.Message.Send(t.conn, string(payload))
}

// Close sends a single close frame carrying code when no write is in flight, then
// drops the socket, which fails any write still blocked on it.
func (t *wsTransport) Close(code int) error {
	var err error
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		if t.raw == nil {
			// No socket of our own: the websocket sends its default close frame.
			go t.conn.Close()
			return
		}
		if t.mu.TryLock() {
			_ = t.conn.SetWriteDeadline(time.Now().Add(closeFrameTimeout))
			t.conn.PayloadType = websocket.CloseFrame
			_, _ = t.conn.Write([]byte{byte(code >> 8), byte(code)})
			t.mu.Unlock()
		}
		err = t.raw.Close()
	})
	return err
}
