// Package cluster implements the TLS-authenticated peer mesh: listen and
// active-connect symmetry with lexicographic CN tie-break, length-prefixed
// JSON framing, and forever-retrying exponential-backoff reconnect
// (spec.md §4.5). It is grounded in the Icinga2 C++ original's cluster
// component (original_source/components/cluster/clustercomponent.h,
// endpoint.cpp: per-endpoint stream, SendMessage/MessageThreadProc, a new
// accepted connection replacing any older one for the same identity) for
// the protocol shape, and in the Go idiom of
// other_examples/8cc77864_steveyegge-beads__internal-rpc-server_core.go.go
// (a *tls.Config-bearing Server struct with a shutdown channel and bounded
// connection handling) for the concurrency structure.
package cluster

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math/rand"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/oceanplexian/gogios/internal/metrics"
)

// Handler processes one received Message from a named peer. Implementations
// must not block for long; they typically hand off to the Event Bus.
type Handler func(peer string, msg Message)

// Config configures a Transport's identity, listen address, TLS material,
// and framing limits.
type Config struct {
	LocalCN         string
	BindAddr        string
	TLSConfig       *tls.Config
	MaxMessageBytes uint64
	RateLimit       rate.Limit // inbound messages/sec per peer link
	RateBurst       int

	// OnLinkUp and OnLinkDown, if set, are invoked synchronously on the
	// goroutine that noticed the transition (accept/dial success for
	// OnLinkUp, the reader or writer loop for OnLinkDown) every time a
	// peer link comes up or goes down. Authority recomputation and the
	// replay handshake hang off these (spec.md §4.6, §4.7 invariant 4);
	// implementations must not block for long.
	OnLinkUp   func(peer string)
	OnLinkDown func(peer string)
}

// LoadTLSConfig builds a mutual-auth *tls.Config from the certificate,
// key, and CA material the out-of-scope cert wizard produces
// (certs/<cn>.{crt,key}, ca.crt), grounded in
// other_examples/c6ai-hlf-easy (node/peer.go's per-peer directory layout
// of cert material).
func LoadTLSConfig(certFile, keyFile, caFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("cluster: load peer keypair: %w", err)
	}
	caBytes, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("cluster: read CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("cluster: no valid certificates found in %s", caFile)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    pool,
		RootCAs:      pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// link is one live peer connection, with its own reader and writer
// goroutine (spec.md §5: "one reader and one writer per live peer link").
type link struct {
	peer     string
	conn     net.Conn
	writeCh  chan Message
	done     chan struct{}
	closeErr error
}

// Transport owns the listen socket, the set of live peer links, and the
// reconnect loops for peers this node is the tie-break client for. It is
// a value owned by the engine, not a package-level singleton.
type Transport struct {
	cfg     Config
	log     *logrus.Entry
	metrics *metrics.Registry
	handler Handler

	mu        sync.Mutex
	links     map[string]*link
	limiters  map[string]*rate.Limiter
	listener  net.Listener
	wg        sync.WaitGroup
	closeOnce sync.Once
	shutdown  chan struct{}
}

// New creates a Transport. handler is invoked for every decoded inbound
// Message, on the owning link's reader goroutine.
func New(cfg Config, log *logrus.Logger, mreg *metrics.Registry, handler Handler) *Transport {
	if cfg.MaxMessageBytes == 0 {
		cfg.MaxMessageBytes = defaultMaxMessageBytes
	}
	if log == nil {
		log = logrus.New()
	}
	entry := logrus.NewEntry(log)
	return &Transport{
		cfg:      cfg,
		log:      entry.WithField("component", "cluster"),
		metrics:  mreg,
		handler:  handler,
		links:    make(map[string]*link),
		limiters: make(map[string]*rate.Limiter),
		shutdown: make(chan struct{}),
	}
}

// ListenAndServe starts accepting inbound peer connections on cfg.BindAddr.
// It returns once the listener is established; Accept runs in a background
// goroutine until Shutdown.
func (t *Transport) ListenAndServe() error {
	ln, err := tls.Listen("tcp", t.cfg.BindAddr, t.cfg.TLSConfig)
	if err != nil {
		return fmt.Errorf("cluster: listen on %s: %w", t.cfg.BindAddr, err)
	}
	t.mu.Lock()
	t.listener = ln
	t.mu.Unlock()

	t.wg.Add(1)
	go t.acceptLoop(ln)
	return nil
}

func (t *Transport) acceptLoop(ln net.Listener) {
	defer t.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-t.shutdown:
				return
			default:
				t.log.WithError(err).Warn("accept failed")
				continue
			}
		}
		t.wg.Add(1)
		go t.handleAccepted(conn)
	}
}

func (t *Transport) handleAccepted(conn net.Conn) {
	defer t.wg.Done()
	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		conn.Close()
		return
	}
	if err := tlsConn.Handshake(); err != nil {
		t.log.WithError(err).Warn("TLS handshake failed on accept")
		conn.Close()
		return
	}
	peer, err := peerIdentity(tlsConn)
	if err != nil {
		t.log.WithError(err).Warn("could not determine peer identity")
		conn.Close()
		return
	}
	// A new accepted connection replaces any older one for the same peer
	// identity (spec.md §4.5).
	t.installLink(peer, tlsConn)
}

// peerIdentity extracts the peer's Common Name from its verified leaf
// certificate.
func peerIdentity(conn *tls.Conn) (string, error) {
	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return "", fmt.Errorf("cluster: no peer certificate presented")
	}
	return state.PeerCertificates[0].Subject.CommonName, nil
}

// ConnectPeer starts a forever-retrying reconnect loop to the named peer,
// but only if this node is the tie-break client for the pair (lower CN
// dials; spec.md §4.5). If the local CN is not lower, this is a no-op:
// the peer is expected to dial us instead, and any resulting accepted
// connection is installed by handleAccepted.
func (t *Transport) ConnectPeer(peer, addr string) {
	if t.cfg.LocalCN >= peer {
		return
	}
	t.wg.Add(1)
	go t.reconnectLoop(peer, addr)
}

func (t *Transport) reconnectLoop(peer, addr string) {
	defer t.wg.Done()
	backoff := time.Second
	const maxBackoff = 60 * time.Second

	for {
		select {
		case <-t.shutdown:
			return
		default:
		}

		conn, err := tls.Dial("tcp", addr, t.cfg.TLSConfig)
		if err != nil {
			t.log.WithError(err).WithField("peer", peer).Warn("dial failed, retrying")
			if !t.sleepBackoff(backoff) {
				return
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		gotPeer, err := peerIdentity(conn)
		if err != nil || gotPeer != peer {
			t.log.WithField("peer", peer).WithField("presented", gotPeer).Warn("peer identity mismatch on connect")
			conn.Close()
			if !t.sleepBackoff(backoff) {
				return
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		backoff = time.Second
		l := t.installLink(peer, conn)
		<-l.done // block until the link dies, then retry
		if !t.sleepBackoff(time.Second) {
			return
		}
	}
}

// nextBackoff doubles the delay up to max. It adds no jitter itself;
// sleepBackoff applies the ±20% jitter (spec.md §4.5) when it waits.
func nextBackoff(current, max time.Duration) time.Duration {
	doubled := current * 2
	if doubled > max {
		doubled = max
	}
	return doubled
}

func jittered(d time.Duration) time.Duration {
	jitter := 0.2 * (2*rand.Float64() - 1) // uniform in [-0.2, 0.2]
	return time.Duration(float64(d) * (1 + jitter))
}

// sleepBackoff sleeps for the jittered backoff duration, returning false
// if shutdown fired first.
func (t *Transport) sleepBackoff(d time.Duration) bool {
	timer := time.NewTimer(jittered(d))
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-t.shutdown:
		return false
	}
}

// installLink registers conn as the live link for peer, closing and
// replacing any prior link, and starts its reader/writer goroutines.
func (t *Transport) installLink(peer string, conn net.Conn) *link {
	l := &link{
		peer:    peer,
		conn:    conn,
		writeCh: make(chan Message, 64),
		done:    make(chan struct{}),
	}

	t.mu.Lock()
	if old, ok := t.links[peer]; ok {
		t.mu.Unlock()
		old.conn.Close()
		<-old.done
		t.mu.Lock()
	}
	t.links[peer] = l
	if _, ok := t.limiters[peer]; !ok && t.cfg.RateLimit > 0 {
		t.limiters[peer] = rate.NewLimiter(t.cfg.RateLimit, t.cfg.RateBurst)
	}
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.PeerConnected.WithLabelValues(peer).Set(1)
	}
	t.log.WithField("peer", peer).Info("peer link established")

	t.wg.Add(2)
	go t.readerLoop(l)
	go t.writerLoop(l)

	if t.cfg.OnLinkUp != nil {
		t.cfg.OnLinkUp(peer)
	}
	return l
}

func (t *Transport) readerLoop(l *link) {
	defer t.wg.Done()
	defer t.closeLink(l)

	for {
		msg, err := readFrame(l.conn, t.cfg.MaxMessageBytes)
		if err != nil {
			l.closeErr = err
			return
		}

		t.mu.Lock()
		limiter := t.limiters[l.peer]
		t.mu.Unlock()
		if limiter != nil && !limiter.Allow() {
			if t.metrics != nil {
				t.metrics.ClusterMsgDrop.WithLabelValues(l.peer, "rate_limited").Inc()
			}
			continue
		}

		if t.metrics != nil {
			t.metrics.ClusterMsgRecv.WithLabelValues(l.peer, msg.Method).Inc()
		}
		if t.handler != nil {
			t.handler(l.peer, msg)
		}
	}
}

func (t *Transport) writerLoop(l *link) {
	defer t.wg.Done()
	for {
		select {
		case msg, ok := <-l.writeCh:
			if !ok {
				return
			}
			if err := writeFrame(l.conn, msg); err != nil {
				t.closeLink(l)
				return
			}
			if t.metrics != nil {
				t.metrics.ClusterMsgSent.WithLabelValues(l.peer, msg.Method).Inc()
			}
		case <-l.done:
			return
		}
	}
}

func (t *Transport) closeLink(l *link) {
	t.mu.Lock()
	if t.links[l.peer] == l {
		delete(t.links, l.peer)
	}
	t.mu.Unlock()

	select {
	case <-l.done:
	default:
		close(l.done)
	}
	l.conn.Close()

	if t.metrics != nil {
		t.metrics.PeerConnected.WithLabelValues(l.peer).Set(0)
	}
	t.log.WithField("peer", l.peer).WithError(l.closeErr).Warn("peer link closed")

	if t.cfg.OnLinkDown != nil {
		t.cfg.OnLinkDown(l.peer)
	}
}

// Send queues msg for delivery to peer. It returns an error if no link is
// currently established.
func (t *Transport) Send(peer string, msg Message) error {
	t.mu.Lock()
	l, ok := t.links[peer]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("cluster: no link to peer %s", peer)
	}
	select {
	case l.writeCh <- msg:
		return nil
	case <-l.done:
		return fmt.Errorf("cluster: link to peer %s closed", peer)
	}
}

// ConnectedPeers returns the names of peers with a currently live link.
func (t *Transport) ConnectedPeers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.links))
	for name := range t.links {
		names = append(names, name)
	}
	return names
}

// Shutdown closes the listener and every live link, and waits for all
// goroutines to exit.
func (t *Transport) Shutdown() error {
	t.closeOnce.Do(func() {
		close(t.shutdown)
		t.mu.Lock()
		if t.listener != nil {
			t.listener.Close()
		}
		links := make([]*link, 0, len(t.links))
		for _, l := range t.links {
			links = append(links, l)
		}
		t.mu.Unlock()

		for _, l := range links {
			l.conn.Close()
		}
	})
	t.wg.Wait()
	return nil
}
