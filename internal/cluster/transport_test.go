package cluster

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"
)

// testCA issues leaf certificates for a given CN, all signed by one
// in-memory root, so peer identity (spec.md §4.5: identity = cert CN)
// can be exercised without touching disk.
type testCA struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
	pool *x509.CertPool
}

func newTestCA(t *testing.T) *testCA {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate CA key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create CA cert: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse CA cert: %v", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(cert)
	return &testCA{cert: cert, key: key, pool: pool}
}

func (ca *testCA) issue(t *testing.T, cn string) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate leaf key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1)},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca.cert, &key.PublicKey, ca.key)
	if err != nil {
		t.Fatalf("create leaf cert for %s: %v", cn, err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func (ca *testCA) tlsConfig(t *testing.T, cn string) *tls.Config {
	leaf := ca.issue(t, cn)
	return &tls.Config{
		Certificates: []tls.Certificate{leaf},
		ClientCAs:    ca.pool,
		RootCAs:      ca.pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}
}

func TestTransportHandshakeEstablishesLinkByCN(t *testing.T) {
	ca := newTestCA(t)

	var gotPeer string
	var gotMsg Message
	received := make(chan struct{}, 1)

	serverCfg := Config{LocalCN: "node-a", BindAddr: "127.0.0.1:0", TLSConfig: ca.tlsConfig(t, "node-a")}
	server := New(serverCfg, nil, nil, func(peer string, msg Message) {
		gotPeer = peer
		gotMsg = msg
		received <- struct{}{}
	})
	if err := server.ListenAndServe(); err != nil {
		t.Fatalf("ListenAndServe: %v", err)
	}
	defer server.Shutdown()

	addr := server.listener.Addr().String()

	clientCfg := Config{LocalCN: "node-b", BindAddr: "127.0.0.1:0", TLSConfig: ca.tlsConfig(t, "node-b")}
	client := New(clientCfg, nil, nil, nil)
	defer client.Shutdown()

	// node-b < node-a is false lexicographically ("node-b" > "node-a"), so
	// wire the dial directly to test the transport mechanics regardless of
	// which side the tie-break would assign as client.
	conn, err := tls.Dial("tcp", addr, clientCfg.TLSConfig)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	l := client.installLink("node-a", conn)
	defer close(l.done)

	msg, err := NewMessage("event::CheckResult", 42, map[string]string{"object": "web1"})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if err := client.Send("node-a", msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server to receive message")
	}

	if gotPeer != "node-b" {
		t.Fatalf("expected server to identify peer as node-b (the client cert's CN), got %q", gotPeer)
	}
	if gotMsg.Method != "event::CheckResult" || gotMsg.Ts != 42 {
		t.Fatalf("unexpected message received: %+v", gotMsg)
	}
}

func TestConnectPeerOnlyDialsWhenLocalCNIsLower(t *testing.T) {
	ca := newTestCA(t)
	cfg := Config{LocalCN: "node-b", TLSConfig: ca.tlsConfig(t, "node-b")}
	tr := New(cfg, nil, nil, nil)
	defer tr.Shutdown()

	// "node-a" < "node-b" is true, so node-b is NOT the client for this
	// pair; ConnectPeer must be a no-op (no goroutine started, no
	// connection attempted against an address that doesn't exist).
	tr.ConnectPeer("node-a", "127.0.0.1:1")

	tr.mu.Lock()
	_, hasLink := tr.links["node-a"]
	tr.mu.Unlock()
	if hasLink {
		t.Fatal("expected no link to be established when local CN is not the tie-break client")
	}
}

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	d := time.Second
	max := 60 * time.Second
	for i := 0; i < 10; i++ {
		d = nextBackoff(d, max)
		if d > max {
			t.Fatalf("backoff exceeded cap: %v", d)
		}
	}
	if d != max {
		t.Fatalf("expected backoff to reach cap of %v, got %v", max, d)
	}
}

func TestJitteredStaysWithinTwentyPercent(t *testing.T) {
	base := 10 * time.Second
	for i := 0; i < 100; i++ {
		got := jittered(base)
		lower := time.Duration(float64(base) * 0.8)
		upper := time.Duration(float64(base) * 1.2)
		if got < lower || got > upper {
			t.Fatalf("jittered(%v) = %v, outside ±20%% envelope [%v, %v]", base, got, lower, upper)
		}
	}
}
