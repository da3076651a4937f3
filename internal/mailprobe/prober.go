// Package mailprobe checks whether a candidate email address would be
// accepted by its domain's mail server, without sending any mail.  The
// probe opens one SMTP connection, walks the handshake up to the RCPT TO
// verdict, and aborts before DATA so no message is ever transmitted.
//
// Outcomes are deliberately four-valued: only a definitive negative from
// the relay means the mailbox does not exist.  Connection failures, DNS
// problems and timeouts all resolve to OutcomeUnverifiable, which callers
// must not conflate with a rejection.
package mailprobe

import (
    "bufio"
    "context"
    "fmt"
    "net"
    "sort"
    "strings"
    "time"
)

// Outcome classifies the result of a single probe.
type Outcome string

const (
    // OutcomeExists means the relay accepted RCPT TO for the address.
    OutcomeExists Outcome = "exists"
    // OutcomeNotExists means the relay definitively rejected the mailbox.
    OutcomeNotExists Outcome = "not_exists"
    // OutcomeUnverifiable means the check could not be completed; it says
    // nothing about whether the mailbox exists.
    OutcomeUnverifiable Outcome = "unverifiable"
    // OutcomeInvalidFormat means the address has no parseable domain part;
    // no connection is attempted.
    OutcomeInvalidFormat Outcome = "invalid_format"
)

// Result is the verdict of one probe call.  Each call resolves exactly once.
type Result struct {
    Outcome Outcome
    Reason  string
}

// Definitive reports whether the outcome is a hard yes/no from the relay,
// as opposed to an inconclusive failure.
func (r Result) Definitive() bool {
    return r.Outcome == OutcomeExists || r.Outcome == OutcomeNotExists
}

// Handshake stages. Each stage names the reply the prober is waiting for.
const (
    stageGreeting = iota // waiting for 220 service ready
    stageHelo            // waiting for 250 after HELO
    stageMailFrom        // waiting for 250 after MAIL FROM
    stageRcptTo          // waiting for the RCPT TO verdict
)

// SMTP reply fragments the state machine matches on.  Replies are matched
// by substring over the accumulated buffer, mirroring how relays emit
// multi-line responses.
const (
    codeReady         = "220"
    codeOK            = "250"
    codeMailboxOK     = "250 2.1.5"
    codeNoSuchMailbox = "550 5.1.1"
    // Multi-line form used by large providers for the same rejection.
    codeNoSuchMailboxML = "550-5.1.1"
)

// Prober performs SMTP liveness checks.  HeloDomain is the identity it
// announces, From the envelope sender it claims, Fallback an optional relay
// host used when the candidate domain's MX records cannot be resolved.
// Timeout bounds the whole dialogue of one probe.
type Prober struct {
    HeloDomain string
    From       string
    Fallback   string
    Timeout    time.Duration

    // Injection points for tests; nil means real DNS and TCP.
    lookupMX func(ctx context.Context, domain string) ([]*net.MX, error)
    dial     func(ctx context.Context, addr string) (net.Conn, error)
}

// New builds a Prober that uses the default resolver and a timeout-bounded
// TCP dialer.
func New(heloDomain, from, fallback string, timeout time.Duration) *Prober {
    p := &Prober{HeloDomain: heloDomain, From: from, Fallback: fallback, Timeout: timeout}
    p.lookupMX = func(ctx context.Context, domain string) ([]*net.MX, error) {
        return net.DefaultResolver.LookupMX(ctx, domain)
    }
    p.dial = func(ctx context.Context, addr string) (net.Conn, error) {
        d := net.Dialer{Timeout: timeout}
        return d.DialContext(ctx, "tcp", addr)
    }
    return p
}

// Probe checks one address.  It owns exactly one connection for its
// lifetime and closes it on every path.
func (p *Prober) Probe(ctx context.Context, email string) Result {
    domain := domainOf(email)
    if domain == "" {
        return Result{Outcome: OutcomeInvalidFormat, Reason: "address has no domain part"}
    }

    host, err := p.relayFor(ctx, domain)
    if err != nil {
        return Result{Outcome: OutcomeUnverifiable, Reason: "MX lookup failed: " + err.Error()}
    }

    conn, err := p.dial(ctx, net.JoinHostPort(host, "25"))
    if err != nil {
        return Result{Outcome: OutcomeUnverifiable, Reason: "connect failed: " + err.Error()}
    }
    defer conn.Close()

    // One deadline covers the whole dialogue so a hung relay cannot stall
    // the caller indefinitely.
    if p.Timeout > 0 {
        _ = conn.SetDeadline(time.Now().Add(p.Timeout))
    }

    return p.converse(conn, email)
}

// converse drives the four-stage handshake over an open connection.
// Inbound lines accumulate into a buffer that is matched by substring and
// cleared on every stage transition.
func (p *Prober) converse(conn net.Conn, email string) Result {
    r := bufio.NewReader(conn)
    stage := stageGreeting
    var buf strings.Builder

    for {
        line, err := r.ReadString('\n')
        buf.WriteString(line)
        b := buf.String()

        // Some relays close the connection right after the RCPT verdict,
        // leaving the final line unterminated.  Check the buffer for a
        // verdict before treating a read error as inconclusive.
        if stage == stageRcptTo {
            if strings.Contains(b, codeNoSuchMailbox) || strings.Contains(b, codeNoSuchMailboxML) {
                return Result{Outcome: OutcomeNotExists, Reason: "mailbox rejected (550 5.1.1)"}
            }
            if strings.Contains(b, codeMailboxOK) {
                return Result{Outcome: OutcomeExists, Reason: "mailbox accepted (250 2.1.5)"}
            }
        }
        if err != nil {
            return Result{Outcome: OutcomeUnverifiable, Reason: "connection closed mid-handshake: " + err.Error()}
        }

        switch stage {
        case stageGreeting:
            if strings.Contains(b, codeReady) {
                if werr := p.send(conn, "HELO %s", p.HeloDomain); werr != nil {
                    return Result{Outcome: OutcomeUnverifiable, Reason: werr.Error()}
                }
                buf.Reset()
                stage = stageHelo
            }
        case stageHelo:
            if strings.Contains(b, codeOK) {
                if werr := p.send(conn, "MAIL FROM:<%s>", p.From); werr != nil {
                    return Result{Outcome: OutcomeUnverifiable, Reason: werr.Error()}
                }
                buf.Reset()
                stage = stageMailFrom
            }
        case stageMailFrom:
            if strings.Contains(b, codeOK) {
                if werr := p.send(conn, "RCPT TO:<%s>", email); werr != nil {
                    return Result{Outcome: OutcomeUnverifiable, Reason: werr.Error()}
                }
                buf.Reset()
                stage = stageRcptTo
            }
        }
    }
}

// relayFor resolves the mail exchanger for a domain, preferring the
// lowest-preference MX record.  When resolution fails and a fallback relay
// is configured, the fallback is used; otherwise the error propagates and
// the probe resolves unverifiable.
func (p *Prober) relayFor(ctx context.Context, domain string) (string, error) {
    mxs, err := p.lookupMX(ctx, domain)
    if err != nil || len(mxs) == 0 {
        if p.Fallback != "" {
            return p.Fallback, nil
        }
        if err == nil {
            err = fmt.Errorf("no MX records for %s", domain)
        }
        return "", err
    }
    sort.Slice(mxs, func(i, j int) bool { return mxs[i].Pref < mxs[j].Pref })
    return strings.TrimSuffix(mxs[0].Host, "."), nil
}

// send writes one CRLF-terminated command line.
func (p *Prober) send(conn net.Conn, format string, args ...interface{}) error {
    if _, err := fmt.Fprintf(conn, format+"\r\n", args...); err != nil {
        return fmt.Errorf("write failed: %w", err)
    }
    return nil
}

// domainOf extracts the domain part of an address, or "" when there is
// none. Only the presence of a non-empty domain is validated here; full
// address syntax is the transport boundary's concern.
func domainOf(email string) string {
    at := strings.LastIndex(email, "@")
    if at < 0 || at == len(email)-1 {
        return ""
    }
    return email[at+1:]
}
