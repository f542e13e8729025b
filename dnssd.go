/* ipp-print - minimal IPP client for submitting print jobs
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * DNS-SD printer discovery
 */

package main

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"github.com/holoplot/go-avahi"
)

// DNS-SD service type of IPP printers
const DnsSdIppServiceType = "_ipp._tcp"

// Avahi "unspecified" interface and protocol
const (
	avahiIfaceUnspec int32 = -1
	avahiProtoUnspec int32 = -1
)

// DnsSdTxtItem represents a single TXT record item
type DnsSdTxtItem struct {
	Key, Value string // TXT entry: Key=Value
}

// DnsSdTxtRecord represents a TXT record
type DnsSdTxtRecord []DnsSdTxtItem

// DnsSdTxtParse parses TXT record, as received from Avahi.
// Items without '=' are boolean attributes with empty value
func DnsSdTxtParse(txt [][]byte) DnsSdTxtRecord {
	var rec DnsSdTxtRecord

	for _, item := range txt {
		key, value, _ := strings.Cut(string(item), "=")
		if key != "" {
			rec = append(rec, DnsSdTxtItem{key, value})
		}
	}

	return rec
}

// Get returns value of the TXT item. Keys are case-insensitive.
// If key is repeated, first occurrence wins
func (txt DnsSdTxtRecord) Get(key string) string {
	for _, item := range txt {
		if strings.EqualFold(item.Key, key) {
			return item.Value
		}
	}
	return ""
}

// DiscoveredPrinter represents a printer, found by DNS-SD
type DiscoveredPrinter struct {
	Name     string   // Service instance name
	Host     string   // Host name
	Address  string   // IP address
	Port     int      // TCP port
	Resource string   // Resource path ("rp" key)
	Model    string   // Make and model ("ty" key)
	UUID     string   // Normalized printer UUID, "" if none
	PDL      []string // Supported document formats ("pdl" key)
	URI      string   // URI to use with ipp-print
}

// DnsSdDiscover browses DNS-SD for IPP printers during the
// specified time
func DnsSdDiscover(timeout time.Duration) ([]DiscoveredPrinter, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("DNS-SD: %s", err)
	}

	server, err := avahi.ServerNew(conn)
	if err != nil {
		return nil, fmt.Errorf("DNS-SD: %s", err)
	}
	defer server.Close()

	browser, err := server.ServiceBrowserNew(avahiIfaceUnspec,
		avahiProtoUnspec, DnsSdIppServiceType, "local", 0)
	if err != nil {
		return nil, fmt.Errorf("DNS-SD: %s", err)
	}

	Log.Debug(' ', "DNS-SD: browsing %s for %s", DnsSdIppServiceType, timeout)

	// Collect services until timeout. The same instance may be
	// reported multiple times, once per interface and protocol
	state := newDnssdBrowseState()
	tmr := time.NewTimer(timeout)
	defer tmr.Stop()

BROWSE:
	for {
		select {
		case svc := <-browser.AddChannel:
			Log.Debug('+', "DNS-SD: %q found, iface=%d proto=%d",
				svc.Name, svc.Interface, svc.Protocol)
			state.add(svc)

		case svc := <-browser.RemoveChannel:
			Log.Debug('-', "DNS-SD: %q removed, iface=%d proto=%d",
				svc.Name, svc.Interface, svc.Protocol)
			state.remove(svc)

		case <-tmr.C:
			break BROWSE
		}
	}

	dnssdBrowserFree(browser.AddChannel, browser.RemoveChannel, func() {
		server.ServiceBrowserFree(browser)
	})

	// Resolve found services
	var printers []DiscoveredPrinter
	for _, svc := range state.list() {
		name := svc.Name
		svc, err = server.ResolveService(svc.Interface, svc.Protocol,
			svc.Name, svc.Type, svc.Domain, avahiProtoUnspec, 0)
		if err != nil {
			Log.Error('!', "DNS-SD: %q: %s", name, err)
			continue
		}

		printers = append(printers, dnssdPrinterFromService(svc))
	}

	sort.Slice(printers, func(i, j int) bool {
		return printers[i].Name < printers[j].Name
	})

	return printers, nil
}

// dnssdBrowserFree frees the service browser.
//
// go-avahi sends browser events while holding the server lock,
// and ServiceBrowserFree needs the same lock, so both channels
// are drained until free returns
func dnssdBrowserFree(add, remove <-chan avahi.Service, free func()) {
	done := make(chan struct{})
	drained := make(chan struct{})

	go func() {
		defer close(drained)
		for {
			select {
			case <-add:
			case <-remove:
			case <-done:
				return
			}
		}
	}()

	free()
	close(done)
	<-drained
}

// dnssdAnnounce identifies a single announcement of the service
// instance: the same instance is announced separately on each
// network interface and for each IP protocol
type dnssdAnnounce struct {
	Interface, Protocol int32
}

// dnssdBrowseState tracks live announcements of service instances
type dnssdBrowseState struct {
	services map[string]map[dnssdAnnounce]avahi.Service
}

// newDnssdBrowseState creates a new dnssdBrowseState
func newDnssdBrowseState() *dnssdBrowseState {
	return &dnssdBrowseState{
		services: make(map[string]map[dnssdAnnounce]avahi.Service),
	}
}

// add records the service announcement
func (st *dnssdBrowseState) add(svc avahi.Service) {
	announces := st.services[svc.Name]
	if announces == nil {
		announces = make(map[dnssdAnnounce]avahi.Service)
		st.services[svc.Name] = announces
	}

	announces[dnssdAnnounce{svc.Interface, svc.Protocol}] = svc
}

// remove forgets the service announcement. The instance is
// forgotten when its last announcement is removed
func (st *dnssdBrowseState) remove(svc avahi.Service) {
	announces := st.services[svc.Name]
	delete(announces, dnssdAnnounce{svc.Interface, svc.Protocol})
	if len(announces) == 0 {
		delete(st.services, svc.Name)
	}
}

// list returns one announcement per live instance, sorted by
// instance name. Of multiple announcements, the one with the
// lowest interface and protocol numbers is chosen
func (st *dnssdBrowseState) list() []avahi.Service {
	var services []avahi.Service

	for _, announces := range st.services {
		var best avahi.Service
		first := true

		for ann, svc := range announces {
			if first ||
				ann.Interface < best.Interface ||
				(ann.Interface == best.Interface && ann.Protocol < best.Protocol) {
				best = svc
				first = false
			}
		}

		services = append(services, best)
	}

	sort.Slice(services, func(i, j int) bool {
		return services[i].Name < services[j].Name
	})

	return services
}

// dnssdPrinterFromService makes DiscoveredPrinter out of
// resolved avahi.Service
func dnssdPrinterFromService(svc avahi.Service) DiscoveredPrinter {
	txt := DnsSdTxtParse(svc.Txt)

	p := DiscoveredPrinter{
		Name:     svc.Name,
		Host:     strings.TrimSuffix(svc.Host, "."),
		Address:  svc.Address,
		Port:     int(svc.Port),
		Resource: strings.TrimPrefix(txt.Get("rp"), "/"),
		Model:    txt.Get("ty"),
		UUID:     dnssdNormalizeUUID(txt.Get("UUID")),
	}

	if pdl := txt.Get("pdl"); pdl != "" {
		p.PDL = strings.Split(pdl, ",")
	}

	host := p.Address
	if host == "" {
		host = p.Host
	}

	p.URI = "http://" + net.JoinHostPort(host, strconv.Itoa(p.Port)) +
		"/" + p.Resource

	return p
}

// dnssdNormalizeUUID parses an UUID and then reformats it into
// the standard form (xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx)
//
// If input is not a valid UUID, it returns an empty string
func dnssdNormalizeUUID(s string) string {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return u.String()
}
