package voice

import (
	"fmt"
	"io"
	"log"
	"sync"

	"hermes/ws"

	"github.com/pion/webrtc/v4"
)

// SignalFunc pushes a server-originated signaling event (WEBRTC_ANSWER,
// ICE_CANDIDATE or WEBRTC_RENEGOTIATE) back down the peer's own connection. Set by the HTTP
// layer when the peer is created; the voice package never touches a
// net.Conn directly.
type SignalFunc func(event string, data any)

// Peer is one user's WebRTC connection into a voice Room. A Peer only
// ever forwards audio — it has no concept of channels, servers or users
// beyond the numeric IDs needed to key the Room's peer map and to stamp
// outgoing VOICE_USER_JOINED/LEFT events.
type Peer struct {
	UserID    int64
	ChannelID int64

	pc     *webrtc.PeerConnection
	signal SignalFunc

	mu    sync.Mutex
	state State

	// negotiating serializes renegotiate calls fired by OnNegotiationNeeded,
	// so two offers are never created and set locally at the same time. It
	// is released once the offer has been sent; it does not wait for the
	// client's answer.
	negotiating sync.Mutex

	// outbound holds one local track per remote peer whose audio is being
	// forwarded to this peer, keyed by the source peer's user ID.
	outbound map[int64]*webrtc.TrackLocalStaticRTP

	// audioTrack is the track this peer publishes, once its browser has
	// negotiated one. Nil until then.
	audioTrack *webrtc.TrackRemote
}

func newPeer(userID, channelID int64, iceServers []string, signal SignalFunc, onTrack func(*webrtc.TrackRemote)) (*Peer, error) {
	config := webrtc.Configuration{}
	if len(iceServers) > 0 {
		config.ICEServers = []webrtc.ICEServer{{URLs: iceServers}}
	}

	pc, err := webrtc.NewPeerConnection(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	p := &Peer{
		UserID:    userID,
		ChannelID: channelID,
		pc:        pc,
		signal:    signal,
		state:     StateConnecting,
		outbound:  make(map[int64]*webrtc.TrackLocalStaticRTP),
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		p.emit(ws.EventICECandidate, c.ToJSON())
	})

	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		p.mu.Lock()
		p.audioTrack = remote
		p.mu.Unlock()
		onTrack(remote)
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateConnected:
			p.setState(StateConnected)
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			p.setState(StateClosed)
		}
	})

	// A later-joining peer's AddTrack call (forwarding an already-published
	// track to this peer, or this peer's own first offer having already
	// landed) needs a fresh offer/answer round once the initial handshake
	// is done; OnNegotiationNeeded is how pion tells us one is due.
	pc.OnNegotiationNeeded(func() {
		p.renegotiate()
	})

	return p, nil
}

// SetSignal repoints server-originated signaling at a new connection. Used
// when a REST voice/join call already created this Peer (with a discarding
// signal) and the user's browser then opens the voice signaling socket.
func (p *Peer) SetSignal(fn SignalFunc) {
	p.mu.Lock()
	p.signal = fn
	p.mu.Unlock()
}

// emit delivers a server-originated signaling event through whichever
// signal func is currently attached, without holding p.mu while it runs.
func (p *Peer) emit(event string, data any) {
	p.mu.Lock()
	fn := p.signal
	p.mu.Unlock()
	fn(event, data)
}

// renegotiate drives a server-initiated offer/answer round, used whenever
// pion reports a local description change is needed after the initial
// handshake — most commonly because a new forwarding track was just added
// to an already-connected peer. The browser is expected to answer with a
// WEBRTC_ANSWER event, applied in HandleAnswer.
func (p *Peer) renegotiate() {
	p.negotiating.Lock()
	defer p.negotiating.Unlock()

	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		log.Printf("[voice] failed to create renegotiation offer user=%d: %v", p.UserID, err)
		return
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		log.Printf("[voice] failed to set local description for renegotiation user=%d: %v", p.UserID, err)
		return
	}
	p.emit(ws.EventWebRTCRenegotiate, ws.SDPData{Type: "offer", SDP: offer.SDP})
}

func (p *Peer) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateClosed {
		return
	}
	rank := map[State]int{StateConnecting: 0, StateSignaling: 1, StateConnected: 2, StateClosed: 3}
	if rank[s] < rank[p.state] {
		return
	}
	p.state = s
}

func (p *Peer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// AudioTrack returns the track this peer is currently publishing, or nil
// if its browser has not negotiated one yet.
func (p *Peer) AudioTrack() *webrtc.TrackRemote {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audioTrack
}

// HandleOffer applies a remote SDP offer and returns the local answer.
func (p *Peer) HandleOffer(sdp string) (webrtc.SessionDescription, error) {
	p.setState(StateSignaling)

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("failed to set remote description: %w", err)
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("failed to create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("failed to set local description: %w", err)
	}
	return answer, nil
}

// HandleAnswer applies the remote answer to a server-initiated
// renegotiation offer sent from renegotiate.
func (p *Peer) HandleAnswer(sdp string) error {
	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
	if err := p.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}
	return nil
}

// AddICECandidate applies a trickled remote ICE candidate.
func (p *Peer) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(candidate)
}

// forwardFrom subscribes this peer to the audio published by src: every
// RTP packet src receives from its browser is relayed verbatim onto a
// local track added to this peer's connection. Each (receiver, source)
// pair gets its own track so the mixer on the client side can tell voices
// apart.
func (p *Peer) forwardFrom(src *Peer, remote *webrtc.TrackRemote) {
	local, err := webrtc.NewTrackLocalStaticRTP(remote.Codec().RTPCodecCapability,
		fmt.Sprintf("audio-%d", src.UserID), fmt.Sprintf("voice-%d", src.UserID))
	if err != nil {
		log.Printf("[voice] failed to create forwarding track for user=%d -> user=%d: %v", src.UserID, p.UserID, err)
		return
	}

	p.mu.Lock()
	p.outbound[src.UserID] = local
	p.mu.Unlock()

	if _, err := p.pc.AddTrack(local); err != nil {
		log.Printf("[voice] failed to add forwarding track for user=%d -> user=%d: %v", src.UserID, p.UserID, err)
		return
	}

	buf := make([]byte, 1500)
	for {
		n, _, err := remote.Read(buf)
		if err != nil {
			if err != io.EOF {
				log.Printf("[voice] forwarding read stopped for user=%d: %v", src.UserID, err)
			}
			return
		}
		if _, err := local.Write(buf[:n]); err != nil {
			return
		}
	}
}

// dropOutboundFrom forgets the local track that carried a departed peer's
// audio. It does not remove the track from this peer's connection; the
// forwardFrom loop ends when the departed peer's connection closes and its
// remote track stops yielding packets.
func (p *Peer) dropOutboundFrom(userID int64) {
	p.mu.Lock()
	delete(p.outbound, userID)
	p.mu.Unlock()
}

func (p *Peer) close() error {
	p.setState(StateClosed)
	return p.pc.Close()
}
