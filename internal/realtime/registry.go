package realtime

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/yungbote/famspace-backend/internal/observability"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

// Registry tracks live peers per channel. Broadcasts on one channel are serialized, so
// every peer observes them in call order.
type Registry struct {
	mu       sync.RWMutex
	log      *logger.Logger
	channels map[string]*channelSet
}

type channelSet struct {
	broadcast sync.Mutex
	peers     map[*Peer]struct{}
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		log:      log.With("component", "RealtimeRegistry"),
		channels: make(map[string]*channelSet),
	}
}

// Add registers p on channel. The peer is removed automatically when it closes.
func (r *Registry) Add(channel string, p *Peer) {
	channel = strings.TrimSpace(channel)
	if channel == "" || p == nil {
		return
	}
	r.mu.Lock()
	set, ok := r.channels[channel]
	if !ok {
		set = &channelSet{peers: make(map[*Peer]struct{})}
		r.channels[channel] = set
	}
	set.peers[p] = struct{}{}
	r.mu.Unlock()

	p.setOnClose(func(closed *Peer) { r.Remove(channel, closed) })
	observability.Current().RealtimeConnected(KindOf(channel))
	r.log.Debug("Realtime peer joined", "channel", channel, "peer_id", p.ID, "member_id", p.MemberID)
}

func (r *Registry) Remove(channel string, p *Peer) {
	r.mu.Lock()
	set, ok := r.channels[channel]
	if !ok {
		r.mu.Unlock()
		return
	}
	if _, present := set.peers[p]; !present {
		r.mu.Unlock()
		return
	}
	// Empty sets stay so a channel keeps one broadcast lock for its lifetime.
	delete(set.peers, p)
	r.mu.Unlock()

	observability.Current().RealtimeDisconnected(KindOf(channel))
	r.log.Debug("Realtime peer left", "channel", channel, "peer_id", p.ID)
}

// Snapshot copies the peers on channel at this instant.
func (r *Registry) Snapshot(channel string) []*Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.channels[channel]
	if !ok {
		return nil
	}
	out := make([]*Peer, 0, len(set.peers))
	for p := range set.peers {
		out = append(out, p)
	}
	return out
}

func (r *Registry) Count(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if set, ok := r.channels[channel]; ok {
		return len(set.peers)
	}
	return 0
}

// Broadcast serializes msg.Event once and queues it for every peer on msg.Channel.
// A peer whose queue is full is removed at once and closed in the background; the rest
// still receive the event.
func (r *Registry) Broadcast(msg Message) int {
	if strings.TrimSpace(msg.Channel) == "" {
		return 0
	}
	payload, err := json.Marshal(msg.Event)
	if err != nil {
		r.log.Warn("Realtime event not serializable", "channel", msg.Channel, "error", err)
		return 0
	}

	r.mu.RLock()
	set, ok := r.channels[msg.Channel]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	set.broadcast.Lock()
	defer set.broadcast.Unlock()

	r.mu.RLock()
	peers := make([]*Peer, 0, len(set.peers))
	for p := range set.peers {
		peers = append(peers, p)
	}
	r.mu.RUnlock()

	kind := KindOf(msg.Channel)
	delivered := 0
	for _, p := range peers {
		select {
		case <-p.Done():
			continue
		default:
		}
		if p.enqueue(payload) {
			delivered++
			continue
		}
		r.log.Warn("Dropping realtime peer; outbound queue full", "channel", msg.Channel, "peer_id", p.ID)
		observability.Current().IncRealtimeDropped(kind)
		// The peer's writer may be stuck on the socket; closing must not hold up this channel.
		r.Remove(msg.Channel, p)
		go p.Close(ClosePolicyViolation)
	}
	observability.Current().IncRealtimeBroadcast(kind)
	return delivered
}

// CloseAll disconnects every peer, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	var all []*Peer
	for _, set := range r.channels {
		for p := range set.peers {
			all = append(all, p)
		}
	}
	r.mu.RUnlock()
	for _, p := range all {
		p.Close(CloseGoingAway)
	}
}
