package mailprobe

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newScriptedProber wires a Prober to one end of a pipe and runs relay on
// the other end, so tests can drive the handshake with a fixed transcript.
func newScriptedProber(t *testing.T, relay func(conn net.Conn)) *Prober {
	t.Helper()
	client, server := net.Pipe()
	go relay(server)

	p := New("probe.test", "probe@probe.test", "", 2*time.Second)
	p.lookupMX = func(ctx context.Context, domain string) ([]*net.MX, error) {
		return []*net.MX{{Host: "mx.test.", Pref: 10}}, nil
	}
	p.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		return client, nil
	}
	return p
}

// relayScript speaks the server side of the probe handshake up to the
// RCPT verdict, then replies with the given lines.
func relayScript(t *testing.T, verdictLines ...string) func(conn net.Conn) {
	t.Helper()
	return func(conn net.Conn) {
		defer conn.Close()
		br := bufio.NewReader(conn)
		write := func(s string) {
			if _, err := conn.Write([]byte(s + "\r\n")); err != nil {
				return
			}
		}
		readCmd := func(wantPrefix string) bool {
			line, err := br.ReadString('\n')
			if err != nil {
				return false
			}
			if !strings.HasPrefix(line, wantPrefix) {
				t.Errorf("relay expected %q, got %q", wantPrefix, line)
				return false
			}
			return true
		}

		write("220 mx.test ESMTP ready")
		if !readCmd("HELO ") {
			return
		}
		write("250 mx.test")
		if !readCmd("MAIL FROM:") {
			return
		}
		write("250 2.1.0 sender ok")
		if !readCmd("RCPT TO:") {
			return
		}
		for _, l := range verdictLines {
			write(l)
		}
	}
}

func TestProbeMailboxExists(t *testing.T) {
	p := newScriptedProber(t, relayScript(t, "250 2.1.5 recipient ok"))

	res := p.Probe(context.Background(), "someone@example.com")
	assert.Equal(t, OutcomeExists, res.Outcome)
	assert.True(t, res.Definitive())
}

func TestProbeMailboxUnknown(t *testing.T) {
	p := newScriptedProber(t, relayScript(t,
		"550-5.1.1 The email account that you tried to reach does not exist.",
		"550 5.1.1 double-check the address"))

	res := p.Probe(context.Background(), "nobody@example.com")
	assert.Equal(t, OutcomeNotExists, res.Outcome)
	assert.True(t, res.Definitive())
}

func TestProbeIgnoresNoiseBeforeVerdict(t *testing.T) {
	// Lines in the verdict stage matching neither code are ignored and
	// the prober keeps waiting.
	p := newScriptedProber(t, relayScript(t,
		"451-4.3.0 temporary notice",
		"250 2.1.5 recipient ok"))

	res := p.Probe(context.Background(), "someone@example.com")
	assert.Equal(t, OutcomeExists, res.Outcome)
}

func TestProbeInvalidFormatSkipsConnection(t *testing.T) {
	p := New("probe.test", "probe@probe.test", "", time.Second)
	p.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		t.Fatal("dial must not be called for a malformed address")
		return nil, nil
	}
	p.lookupMX = func(ctx context.Context, domain string) ([]*net.MX, error) {
		t.Fatal("MX lookup must not be called for a malformed address")
		return nil, nil
	}

	for _, addr := range []string{"no-at-sign", "trailing@"} {
		res := p.Probe(context.Background(), addr)
		assert.Equal(t, OutcomeInvalidFormat, res.Outcome, addr)
		assert.False(t, res.Definitive())
	}
}

func TestProbeConnectionFailureIsUnverifiable(t *testing.T) {
	p := New("probe.test", "probe@probe.test", "", time.Second)
	p.lookupMX = func(ctx context.Context, domain string) ([]*net.MX, error) {
		return []*net.MX{{Host: "mx.test.", Pref: 10}}, nil
	}
	p.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}

	res := p.Probe(context.Background(), "someone@example.com")
	assert.Equal(t, OutcomeUnverifiable, res.Outcome)
	assert.False(t, res.Definitive(), "could-not-check must never read as does-not-exist")
}

func TestProbeVerdictOnUnterminatedFinalLine(t *testing.T) {
	// Some relays emit the RCPT verdict and close without terminating the
	// line.  The verdict must still be honored, not reported as
	// unverifiable.
	cases := []struct {
		name    string
		verdict string
		want    Outcome
	}{
		{"rejection without newline", "550 5.1.1 no such user", OutcomeNotExists},
		{"acceptance without newline", "250 2.1.5 recipient ok", OutcomeExists},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newScriptedProber(t, func(conn net.Conn) {
				defer conn.Close()
				br := bufio.NewReader(conn)
				write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
				write("220 mx.test ESMTP ready")
				_, _ = br.ReadString('\n') // HELO
				write("250 mx.test")
				_, _ = br.ReadString('\n') // MAIL FROM
				write("250 2.1.0 sender ok")
				_, _ = br.ReadString('\n') // RCPT TO
				_, _ = conn.Write([]byte(tc.verdict))
			})

			res := p.Probe(context.Background(), "someone@example.com")
			assert.Equal(t, tc.want, res.Outcome)
		})
	}
}

func TestProbeAbortedHandshakeIsUnverifiable(t *testing.T) {
	// Relay greets and then drops the connection.
	p := newScriptedProber(t, func(conn net.Conn) {
		_, _ = conn.Write([]byte("220 mx.test ESMTP ready\r\n"))
		br := bufio.NewReader(conn)
		_, _ = br.ReadString('\n') // HELO
		conn.Close()
	})

	res := p.Probe(context.Background(), "someone@example.com")
	assert.Equal(t, OutcomeUnverifiable, res.Outcome)
}

func TestProbePicksLowestPreferenceMX(t *testing.T) {
	var dialed string
	p := New("probe.test", "probe@probe.test", "", time.Second)
	p.lookupMX = func(ctx context.Context, domain string) ([]*net.MX, error) {
		require.Equal(t, "example.com", domain)
		return []*net.MX{
			{Host: "backup.example.com.", Pref: 20},
			{Host: "primary.example.com.", Pref: 5},
		}, nil
	}
	p.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		dialed = addr
		return nil, errors.New("stop here")
	}

	res := p.Probe(context.Background(), "someone@example.com")
	assert.Equal(t, OutcomeUnverifiable, res.Outcome)
	assert.Equal(t, "primary.example.com:25", dialed)
}

func TestProbeFallbackRelayWhenMXFails(t *testing.T) {
	var dialed string
	p := New("probe.test", "probe@probe.test", "relay.fallback.test", time.Second)
	p.lookupMX = func(ctx context.Context, domain string) ([]*net.MX, error) {
		return nil, errors.New("no such host")
	}
	p.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		dialed = addr
		return nil, errors.New("stop here")
	}

	_ = p.Probe(context.Background(), "someone@example.com")
	assert.Equal(t, "relay.fallback.test:25", dialed)
}

func TestProbeNoMXNoFallbackIsUnverifiable(t *testing.T) {
	p := New("probe.test", "probe@probe.test", "", time.Second)
	p.lookupMX = func(ctx context.Context, domain string) ([]*net.MX, error) {
		return nil, nil
	}
	p.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		t.Fatal("dial must not be called without a relay")
		return nil, nil
	}

	res := p.Probe(context.Background(), "someone@example.com")
	assert.Equal(t, OutcomeUnverifiable, res.Outcome)
}
