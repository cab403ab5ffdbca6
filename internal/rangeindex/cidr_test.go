package rangeindex

import (
	"errors"
	"testing"
)

func TestParseCIDR(t *testing.T) {
	cases := []struct {
		in      string
		network uint32
		prefix  uint8
	}{
		{"192.168.1.0/24", 0xC0A80100, 24},
		{"10.1.2.3/8", 0x0A010203, 8},
		{"0.0.0.0/0", 0, 0},
		{"255.255.255.255/32", 0xFFFFFFFF, 32},
	}

	for _, tc := range cases {
		network, prefix, err := ParseCIDR(tc.in)
		if err != nil {
			t.Fatalf("ParseCIDR(%q) returned error: %v", tc.in, err)
		}
		if network != tc.network || prefix != tc.prefix {
			t.Fatalf("ParseCIDR(%q) = (%#x, %d), want (%#x, %d)", tc.in, network, prefix, tc.network, tc.prefix)
		}
	}
}

func TestParseCIDRRejectsMalformedInput(t *testing.T) {
	inputs := []string{
		"",
		"not-a-cidr",
		"10.0.0.0",
		"10.0.0.0/",
		"10.0.0.0/8/8",
		"10.0.0.0/33",
		"10.0.0.0/-1",
		"10.0.0.0/+8",
		"10.0.0.0/100",
		"10.0.0/8",
		"10.0.0.256/8",
		"010.0.0.0/8",
		"::1/64",
		"::ffff:10.0.0.0/104",
		" 10.0.0.0/8",
	}

	for _, in := range inputs {
		if _, _, err := ParseCIDR(in); !errors.Is(err, ErrMalformedCIDR) {
			t.Fatalf("ParseCIDR(%q) error = %v, want ErrMalformedCIDR", in, err)
		}
	}
}

func TestMask(t *testing.T) {
	cases := map[int]uint32{
		0:  0,
		1:  0x80000000,
		8:  0xFF000000,
		16: 0xFFFF0000,
		24: 0xFFFFFF00,
		31: 0xFFFFFFFE,
		32: 0xFFFFFFFF,
	}
	for prefix, want := range cases {
		got, err := Mask(prefix)
		if err != nil {
			t.Fatalf("Mask(%d) returned error: %v", prefix, err)
		}
		if got != want {
			t.Fatalf("Mask(%d) = %#x, want %#x", prefix, got, want)
		}
	}

	for _, prefix := range []int{-1, 33, 64} {
		if _, err := Mask(prefix); !errors.Is(err, ErrMalformedCIDR) {
			t.Fatalf("Mask(%d) error = %v, want ErrMalformedCIDR", prefix, err)
		}
	}
}

func TestEntryBounds(t *testing.T) {
	entry, err := NewEntry("10.1.2.3/16", "ISP", "AS1")
	if err != nil {
		t.Fatalf("NewEntry returned error: %v", err)
	}
	if entry.Network != 0x0A010203 {
		t.Fatalf("entry network was masked: %#x", entry.Network)
	}
	if entry.First() != 0x0A010000 || entry.Last() != 0x0A01FFFF {
		t.Fatalf("entry bounds = [%#x, %#x], want [0x0a010000, 0x0a01ffff]", entry.First(), entry.Last())
	}
	if got := entry.NetipPrefix().String(); got != "10.1.0.0/16" {
		t.Fatalf("NetipPrefix = %s, want 10.1.0.0/16", got)
	}
	if entry.Record.CIDRRange != "10.1.2.3/16" {
		t.Fatalf("record cidr = %q, want the source text", entry.Record.CIDRRange)
	}
}

func TestAddrConversionRoundTrip(t *testing.T) {
	v, err := ParseAddr("192.168.1.42")
	if err != nil {
		t.Fatalf("ParseAddr returned error: %v", err)
	}
	if v != 0xC0A8012A {
		t.Fatalf("ParseAddr = %#x, want 0xc0a8012a", v)
	}
	if got := Uint32ToAddr(v).String(); got != "192.168.1.42" {
		t.Fatalf("Uint32ToAddr = %s, want 192.168.1.42", got)
	}
	if _, err := ParseAddr("2001:db8::1"); err == nil {
		t.Fatal("expected error for IPv6 address, got nil")
	}
}
