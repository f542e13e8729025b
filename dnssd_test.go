/* ipp-print - minimal IPP client for submitting print jobs
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Tests for DNS-SD printer discovery
 */

package main

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/holoplot/go-avahi"
)

// Test TXT record parsing
func TestDnsSdTxtParse(t *testing.T) {
	txt := DnsSdTxtParse([][]byte{
		[]byte("txtvers=1"),
		[]byte("rp=ipp/print"),
		[]byte("ty=Example Laser 100"),
		[]byte("Color"),
		[]byte("=orphan"),
		[]byte("RP=duplicate"),
		[]byte("note=a=b"),
	})

	testData := []struct{ key, value string }{
		{"txtvers", "1"},
		{"rp", "ipp/print"},
		{"Rp", "ipp/print"},
		{"ty", "Example Laser 100"},
		{"color", ""},
		{"note", "a=b"},
		{"missing", ""},
	}

	for _, data := range testData {
		value := txt.Get(data.key)
		if value != data.value {
			t.Errorf("Get(%q): expected %q, got %q", data.key, data.value, value)
		}
	}

	if len(txt) != 6 {
		t.Errorf("expected 6 items, got %d", len(txt))
	}
}

// Test conversion of resolved service into DiscoveredPrinter
func TestDnsSdPrinterFromService(t *testing.T) {
	svc := avahi.Service{
		Name:    "Example Laser 100",
		Type:    DnsSdIppServiceType,
		Domain:  "local",
		Host:    "laser.local.",
		Address: "192.168.1.20",
		Port:    631,
		Txt: [][]byte{
			[]byte("rp=/ipp/print"),
			[]byte("ty=Example Laser 100"),
			[]byte("UUID=urn:uuid:01234567-89AB-CDEF-0123-456789ABCDEF"),
			[]byte("pdl=application/pdf,image/urf"),
		},
	}

	expected := DiscoveredPrinter{
		Name:     "Example Laser 100",
		Host:     "laser.local",
		Address:  "192.168.1.20",
		Port:     631,
		Resource: "ipp/print",
		Model:    "Example Laser 100",
		UUID:     "01234567-89ab-cdef-0123-456789abcdef",
		PDL:      []string{"application/pdf", "image/urf"},
		URI:      "http://192.168.1.20:631/ipp/print",
	}

	p := dnssdPrinterFromService(svc)
	if !reflect.DeepEqual(p, expected) {
		t.Errorf("mismatch:\nexpected: %+v\npresent:  %+v", expected, p)
	}

	// IPv6 address, no TXT
	svc = avahi.Service{
		Name:    "v6",
		Host:    "v6.local.",
		Address: "fe80::1",
		Port:    8631,
	}

	p = dnssdPrinterFromService(svc)
	if p.URI != "http://[fe80::1]:8631/" {
		t.Errorf("IPv6: bad URI %q", p.URI)
	}

	if p.PDL != nil || p.UUID != "" {
		t.Errorf("IPv6: unexpected PDL or UUID: %+v", p)
	}
}

// Test UUID normalization
func TestDnsSdNormalizeUUID(t *testing.T) {
	testData := []struct{ in, out string }{
		{"01234567-89ab-cdef-0123-456789abcdef", "01234567-89ab-cdef-0123-456789abcdef"},
		{"01234567-89AB-CDEF-0123-456789ABCDEF", "01234567-89ab-cdef-0123-456789abcdef"},
		{"01234567-89ab-cdef-0123-456789abcde", ""},
		{"01234567-89ab-cdef-0123-456789abcdef0", ""},
		{"urn:uuid:01234567-89ab-cdef-0123-456789abcdef", "01234567-89ab-cdef-0123-456789abcdef"},
		{"0123456789abcdef0123456789abcdef", "01234567-89ab-cdef-0123-456789abcdef"},
		{"{01234567-89ab-cdef-0123-456789abcdef}", "01234567-89ab-cdef-0123-456789abcdef"},
		{" 01234567-89ab-cdef-0123-456789abcdef ", "01234567-89ab-cdef-0123-456789abcdef"},
		{"", ""},
	}

	for _, data := range testData {
		uuid := dnssdNormalizeUUID(data.in)
		if uuid != data.out {
			t.Errorf("dnssdNormalizeUUID(%q): expected %q, got %q",
				data.in, data.out, uuid)
		}
	}
}

// Test tracking of per-interface announcements
func TestDnsSdBrowseState(t *testing.T) {
	st := newDnssdBrowseState()

	laser := func(iface, proto int32) avahi.Service {
		return avahi.Service{Name: "Laser", Interface: iface, Protocol: proto}
	}

	st.add(laser(3, 0))
	st.add(laser(2, 1))
	st.add(laser(2, 0))
	st.add(avahi.Service{Name: "Inkjet", Interface: 2, Protocol: 0})

	// Removal on one interface keeps the instance
	st.remove(laser(2, 0))

	names := []string{}
	for _, svc := range st.list() {
		names = append(names, svc.Name)
	}

	if s := strings.Join(names, ","); s != "Inkjet,Laser" {
		t.Errorf("after partial removal: expected Inkjet,Laser, got %s", s)
	}

	svc := st.list()[1]
	if svc.Interface != 2 || svc.Protocol != 1 {
		t.Errorf("expected announcement 2/1 to be resolved, got %d/%d",
			svc.Interface, svc.Protocol)
	}

	// Removal of the last announcement forgets the instance
	st.remove(laser(3, 0))
	st.remove(laser(2, 1))
	st.remove(avahi.Service{Name: "Missing"})

	list := st.list()
	if len(list) != 1 || list[0].Name != "Inkjet" {
		t.Errorf("after full removal: expected Inkjet only, got %+v", list)
	}

	// Re-announce brings it back
	st.add(laser(1, 0))
	if len(st.list()) != 2 {
		t.Errorf("re-announced instance is not listed")
	}
}

// Test that browser teardown doesn't block on undelivered events
func TestDnsSdBrowserFree(t *testing.T) {
	add := make(chan avahi.Service, 10)
	remove := make(chan avahi.Service, 10)

	// The sender owns the lock until all events are delivered,
	// and free waits for the lock
	lock := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			add <- avahi.Service{Name: "Laser"}
			remove <- avahi.Service{Name: "Laser"}
		}
		close(lock)
	}()

	freed := make(chan struct{})
	go func() {
		dnssdBrowserFree(add, remove, func() { <-lock })
		close(freed)
	}()

	select {
	case <-freed:
	case <-time.After(5 * time.Second):
		t.Fatalf("dnssdBrowserFree blocked")
	}
}

// Test discovered printers report
func TestStatusFormatDiscovered(t *testing.T) {
	text := string(StatusFormatDiscovered([]DiscoveredPrinter{
		{
			Name: "Example Laser 100",
			URI:  "http://192.168.1.20:631/ipp/print",
			PDL:  []string{"application/pdf", "image/urf"},
		},
	}))

	expected := "IPP printers:\n" +
		"   1. \"Example Laser 100\"\n" +
		"      uri:   http://192.168.1.20:631/ipp/print\n" +
		"      pdl:   application/pdf,image/urf\n"

	if text != expected {
		t.Errorf("mismatch:\nexpected:\n%s\npresent:\n%s", expected, text)
	}
}
