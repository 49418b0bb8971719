// Package voice implements the SFU: one WebRTC PeerConnection per
// connected user, grouped into per-voice-channel Rooms, forwarding each
// published audio track to every other peer in the room in-process.
package voice

import (
	"fmt"
	"log"
	"strconv"
	"sync"

	"hermes/ws"

	"github.com/pion/webrtc/v4"
)

// Manager owns every Room and enforces that a user holds at most one
// active Peer at a time, across all voice channels.
type Manager struct {
	broker     *ws.Broker
	iceServers []string

	mu        sync.Mutex
	rooms     map[int64]*Room // channelID -> Room
	byUser    map[int64]int64 // userID -> channelID, for single-active-peer eviction
}

func NewManager(broker *ws.Broker, iceServers []string) *Manager {
	return &Manager{
		broker:     broker,
		iceServers: iceServers,
		rooms:      make(map[int64]*Room),
		byUser:     make(map[int64]int64),
	}
}

// Join creates a new Peer for userID in channelID's room, evicting any
// other Peer already held by that user (a user can only be connected to
// one voice channel at a time, even across servers). signal delivers
// server-originated WEBRTC_ANSWER, ICE_CANDIDATE and WEBRTC_RENEGOTIATE
// events back to the caller's own connection.
//
// Join is shared by the REST voice/join endpoint (which announces
// membership with a discarding signal, since no socket exists yet) and the
// voice signaling socket (which supplies the real signal once the browser
// connects). Calling Join again for a user already in the same channel
// does not evict or re-publish VOICE_USER_JOINED — it just repoints the
// existing Peer's signal at the new caller, so the two call sites
// compose into one join instead of a spurious leave-then-rejoin.
func (m *Manager) Join(channelID, userID int64, signal SignalFunc) (*Peer, error) {
	m.mu.Lock()
	if prevChannel, ok := m.byUser[userID]; ok {
		if prevChannel == channelID {
			room := m.rooms[channelID]
			m.mu.Unlock()
			if peer, found := room.peer(userID); found {
				peer.SetSignal(signal)
				return peer, nil
			}
			m.mu.Lock()
		} else {
			m.mu.Unlock()
			if err := m.Leave(prevChannel, userID); err != nil {
				return nil, fmt.Errorf("failed to evict existing voice connection: %w", err)
			}
			m.mu.Lock()
		}
	}

	room, ok := m.rooms[channelID]
	if !ok {
		room = newRoom(channelID)
		m.rooms[channelID] = room
	}
	m.byUser[userID] = channelID
	m.mu.Unlock()

	peer, err := newPeer(userID, channelID, m.iceServers, signal, func(track *webrtc.TrackRemote) {
		room.onPeerTrack(peerForTrackOwner(room, userID), track)
	})
	if err != nil {
		m.mu.Lock()
		delete(m.byUser, userID)
		m.mu.Unlock()
		return nil, err
	}

	room.add(peer)
	room.wireExisting(peer)

	log.Printf("[voice] peer joined channel=%d user=%d", channelID, userID)
	m.publish(channelID, ws.EventVoiceJoined, ws.VoiceMembershipData{
		UserID:    strconv.FormatInt(userID, 10),
		ChannelID: strconv.FormatInt(channelID, 10),
	})
	return peer, nil
}

// peerForTrackOwner re-resolves a peer from the room by user ID. Needed
// because newPeer's onTrack callback is wired before the Peer value it
// belongs to is known to the room.
func peerForTrackOwner(room *Room, userID int64) *Peer {
	p, _ := room.peer(userID)
	return p
}

// Leave closes a user's peer connection, stops every forward that
// depended on it, and publishes VOICE_USER_LEFT. Removing the last peer
// from a room drops the room entirely.
func (m *Manager) Leave(channelID, userID int64) error {
	m.mu.Lock()
	room, ok := m.rooms[channelID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	if m.byUser[userID] == channelID {
		delete(m.byUser, userID)
	}
	m.mu.Unlock()

	peer, ok := room.peer(userID)
	if !ok {
		return nil
	}
	room.remove(userID)
	room.onPeerLeft(userID)

	if err := peer.close(); err != nil {
		log.Printf("[voice] error closing peer channel=%d user=%d: %v", channelID, userID, err)
	}

	if room.size() == 0 {
		m.mu.Lock()
		if r, ok := m.rooms[channelID]; ok && r == room && room.size() == 0 {
			delete(m.rooms, channelID)
		}
		m.mu.Unlock()
	}

	m.publish(channelID, ws.EventVoiceLeft, ws.VoiceMembershipData{
		UserID:    strconv.FormatInt(userID, 10),
		ChannelID: strconv.FormatInt(channelID, 10),
	})
	return nil
}

// Peer returns the active peer for a user in a channel, if any.
func (m *Manager) Peer(channelID, userID int64) (*Peer, bool) {
	m.mu.Lock()
	room, ok := m.rooms[channelID]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	return room.peer(userID)
}

func (m *Manager) publish(channelID int64, event string, data any) {
	evt, err := ws.NewEvent(event, data)
	if err != nil {
		log.Printf("[voice] failed to encode %s event: %v", event, err)
		return
	}
	m.broker.Publish(channelID, evt)
}
