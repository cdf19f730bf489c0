package netstack

import "errors"

// ErrNoArpEntry is returned by SendPayload when no ARP entry is known for
// the destination IP — a TX fatal error per the core's error taxonomy,
// surfaced to the caller rather than panicking the process (see SPEC_FULL.md
// open question (a)).
var ErrNoArpEntry = errors.New("netstack: no arp entry for destination")
