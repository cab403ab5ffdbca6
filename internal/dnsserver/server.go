// Package dnsserver answers origin queries over DNS: a TXT query for
// D.C.B.A.<zone> returns "<asn> | <cidr> | <isp>" for the address A.B.C.D.
package dnsserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/miekg/dns"

	"asnlookup/internal/lookup"
)

const (
	answerTTL       = 60
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	lookup *lookup.Service
	zone   string
}

func New(svc *lookup.Service, zone string) *Server {
	return &Server{lookup: svc, zone: dns.CanonicalName(zone)}
}

func (s *Server) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	if err := w.WriteMsg(s.Response(context.Background(), r)); err != nil {
		log.Debug("DNS write failed", "remote", w.RemoteAddr(), "error", err)
	}
}

// Response builds the reply to r.
func (s *Server) Response(ctx context.Context, r *dns.Msg) *dns.Msg {
	m := new(dns.Msg)
	if r.Opcode != dns.OpcodeQuery {
		return m.SetRcode(r, dns.RcodeNotImplemented)
	}
	if len(r.Question) != 1 {
		return m.SetRcode(r, dns.RcodeFormatError)
	}

	q := r.Question[0]
	name := dns.CanonicalName(q.Name)
	if !dns.IsSubDomain(s.zone, name) {
		return m.SetRcode(r, dns.RcodeRefused)
	}

	m.SetReply(r)
	m.Authoritative = true
	if name == s.zone {
		return m
	}

	ip, ok := reversedIPv4(strings.TrimSuffix(name, "."+s.zone))
	if !ok {
		m.Rcode = dns.RcodeNameError
		return m
	}

	res, err := s.lookup.Lookup(ctx, ip)
	switch {
	case errors.Is(err, lookup.ErrNoIndex):
		m.Rcode = dns.RcodeServerFailure
		return m
	case err != nil:
		m.Rcode = dns.RcodeNameError
		return m
	}

	if q.Qtype != dns.TypeTXT && q.Qtype != dns.TypeANY {
		return m
	}
	m.Answer = append(m.Answer, &dns.TXT{
		Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: answerTTL},
		Txt: []string{fmt.Sprintf("%s | %s | %s", res.Record.ASN, res.Record.CIDRRange, res.Record.ISP)},
	})
	return m
}

// reversedIPv4 turns the labels "D.C.B.A" into "A.B.C.D".
func reversedIPv4(prefix string) (string, bool) {
	labels := dns.SplitDomainName(prefix)
	if len(labels) != 4 {
		return "", false
	}
	return labels[3] + "." + labels[2] + "." + labels[1] + "." + labels[0], true
}

// Serve answers queries arriving on pc until ctx is done.
func (s *Server) Serve(ctx context.Context, pc net.PacketConn) error {
	srv := &dns.Server{PacketConn: pc, Handler: s}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting DNS server", "address", pc.LocalAddr(), "zone", s.zone)
		errCh <- srv.ActivateAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("dnsserver: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.ShutdownContext(shutdownCtx); err != nil {
		return fmt.Errorf("dnsserver: shutdown: %w", err)
	}
	return nil
}

// ListenAndServe binds a UDP socket on addr and serves it.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("dnsserver: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, pc)
}
