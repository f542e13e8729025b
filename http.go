/* ipp-print - minimal IPP client for submitting print jobs
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * HTTP transport for IPP requests
 */

package main

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/OpenPrinting/goipp"
)

var (
	httpSessionID int32
)

// IppTransport performs HTTP POST of the IPP request
//
// Post returns HTTP status and response body. The error is returned
// only if HTTP exchange didn't happen at all; non-200 statuses are
// not errors at this level
type IppTransport interface {
	Post(url string, body []byte, hdr http.Header) (int, []byte, error)
}

// httpTransport implements IppTransport on a top of http.Client
type httpTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a new IppTransport with the fixed
// per-request timeout
func NewHTTPTransport(timeout time.Duration) IppTransport {
	return &httpTransport{
		client: &http.Client{Timeout: timeout},
	}
}

// Post implements IppTransport interface
func (t *httpTransport) Post(url string, body []byte, hdr http.Header) (
	int, []byte, error) {

	session := atomic.AddInt32(&httpSessionID, 1)

	rq, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}

	httpCopyHeaders(rq.Header, hdr)
	logHTTPRq(session, rq)

	rsp, err := t.client.Do(rq)
	if err != nil {
		Log.Begin().Trace(LogTraceHTTP, '!', "HTTP[%d]: %s", session, err).Commit()
		return 0, nil, err
	}

	data, err := io.ReadAll(rsp.Body)
	rsp.Body.Close()

	logHTTPRsp(session, rsp)

	if err != nil {
		return rsp.StatusCode, data, err
	}

	return rsp.StatusCode, data, nil
}

// httpIppHeaders returns HTTP headers for the IPP request
func httpIppHeaders() http.Header {
	hdr := make(http.Header)
	hdr.Set("Content-Type", goipp.ContentType)
	hdr.Set("User-Agent", "ipp-print/"+Version)
	return hdr
}

// IppHTTPURL converts printer URI into the URL for HTTP request.
//
// ipp:// and ipps:// URIs are mapped to http:// and https://,
// using port 631 if port is not specified. http:// and https://
// URIs are used as is
func IppHTTPURL(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}

	if u.Host == "" {
		return "", fmt.Errorf("%q: missing host", uri)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return uri, nil
	case "ipp":
		u.Scheme = "http"
	case "ipps":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("%q: unsupported URI scheme", uri)
	}

	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), "631")
	}

	return u.String(), nil
}

// Copy HTTP headers
func httpCopyHeaders(dst, src http.Header) {
	for k, v := range src {
		dst[k] = v
	}
}

// Log HTTP header
func logHTTPHdr(msg *LogMessage, prefix byte, title string, hdr http.Header) {
	keys := []string{}
	for k := range hdr {
		keys = append(keys, k)
	}

	msg.Trace(LogTraceHTTP, prefix, "%s", title)
	sort.Strings(keys)
	for _, k := range keys {
		msg.Trace(LogTraceHTTP, prefix, "  %s: %s", k, hdr.Get(k))
	}
}

// Log HTTP request
func logHTTPRq(session int32, rq *http.Request) {
	if !Log.Enabled(LogTraceHTTP) {
		return
	}

	msg := Log.Begin()
	title := fmt.Sprintf("HTTP[%d]: %s %s %s", session, rq.Method, rq.URL, rq.Proto)
	logHTTPHdr(msg, '>', title, rq.Header)
	msg.Commit()
}

// Log HTTP response
func logHTTPRsp(session int32, rsp *http.Response) {
	if !Log.Enabled(LogTraceHTTP) {
		return
	}

	msg := Log.Begin()
	title := fmt.Sprintf("HTTP[%d]: %s %s", session, rsp.Proto, rsp.Status)
	logHTTPHdr(msg, '<', title, rsp.Header)
	msg.Commit()
}
