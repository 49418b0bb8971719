package voice

import (
	"log"
	"sync"

	"github.com/pion/webrtc/v4"
)

// Room holds every peer currently connected to one voice channel. All
// mutation goes through the Room's own mutex; Peer state is guarded
// separately, so a Room operation never holds both locks at once.
type Room struct {
	ChannelID int64

	mu    sync.RWMutex
	peers map[int64]*Peer // userID -> Peer
}

func newRoom(channelID int64) *Room {
	return &Room{ChannelID: channelID, peers: make(map[int64]*Peer)}
}

func (r *Room) peer(userID int64) (*Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[userID]
	return p, ok
}

func (r *Room) snapshot() []*Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

func (r *Room) add(p *Peer) {
	r.mu.Lock()
	r.peers[p.UserID] = p
	r.mu.Unlock()
}

func (r *Room) remove(userID int64) {
	r.mu.Lock()
	delete(r.peers, userID)
	r.mu.Unlock()
}

func (r *Room) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// onPeerTrack wires a newly published track to every other peer already
// in the room. Called from the owning Peer's OnTrack callback.
func (r *Room) onPeerTrack(src *Peer, track *webrtc.TrackRemote) {
	for _, dst := range r.snapshot() {
		if dst.UserID == src.UserID {
			continue
		}
		go dst.forwardFrom(src, track)
	}
}

// wireExisting forwards every track already being published in the room
// to a peer that just joined.
func (r *Room) wireExisting(joined *Peer) {
	for _, existing := range r.snapshot() {
		if existing.UserID == joined.UserID {
			continue
		}
		if track := existing.AudioTrack(); track != nil {
			go joined.forwardFrom(existing, track)
		}
	}
}

// onPeerLeft tells every remaining peer to forget its forwarding track for
// the departed user (see dropOutboundFrom).
func (r *Room) onPeerLeft(userID int64) {
	for _, p := range r.snapshot() {
		p.dropOutboundFrom(userID)
	}
	log.Printf("[voice] peer left channel=%d user=%d, %d remaining", r.ChannelID, userID, r.size())
}
