package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Close codes sent to peers.
const (
	CloseNormal          = 1000
	CloseGoingAway       = 1001
	CloseNotAcceptable   = 1003
	ClosePolicyViolation = 1008
)

const DefaultQueueSize = 32

// Transport is the socket under a peer. Implementations must allow Close to run
// concurrently with WriteMessage.
type Transport interface {
	WriteMessage(payload []byte) error
	Close(code int) error
}

// Peer is one authenticated connection. Broadcasts land in a bounded queue that a
// single writer goroutine drains, so a slow socket never stalls the broadcaster.
type Peer struct {
	ID       uuid.UUID
	MemberID uuid.UUID
	FamilyID uuid.UUID
	JoinedAt time.Time

	transport Transport
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	onClose func(*Peer)
}

func NewPeer(memberID, familyID uuid.UUID, t Transport, queueSize int) *Peer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Peer{
		ID:        uuid.New(),
		MemberID:  memberID,
		FamilyID:  familyID,
		JoinedAt:  time.Now().UTC(),
		transport: t,
		out:       make(chan []byte, queueSize),
		done:      make(chan struct{}),
	}
}

// Run writes queued payloads until the peer closes. A write error closes the peer.
func (p *Peer) Run() {
	for {
		select {
		case <-p.done:
			return
		case payload := <-p.out:
			if err := p.transport.WriteMessage(payload); err != nil {
				p.Close(CloseGoingAway)
				return
			}
		}
	}
}

// Close is idempotent. It notifies the owning registry and closes the transport with code.
func (p *Peer) Close(code int) {
	p.closeOnce.Do(func() {
		close(p.done)
		p.mu.Lock()
		onClose := p.onClose
		p.mu.Unlock()
		if onClose != nil {
			onClose(p)
		}
		_ = p.transport.Close(code)
	})
}

func (p *Peer) Done() <-chan struct{} { return p.done }

func (p *Peer) enqueue(payload []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.out <- payload:
		return true
	default:
		return false
	}
}

func (p *Peer) setOnClose(fn func(*Peer)) {
	p.mu.Lock()
	p.onClose = fn
	p.mu.Unlock()
}
