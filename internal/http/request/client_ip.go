// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package request // import "streamlance.app/internal/http/request"

import (
	"net"
	"net/http"
	"slices"
	"strings"
)

// FindClientIP returns the real client IP address. Proxy headers are used
// only if the request came from a trusted proxy.
func FindClientIP(r *http.Request, trustedProxy func(ip string) bool) string {
	remoteIP := FindRemoteIP(r)
	if !trustedProxy(remoteIP) {
		return remoteIP
	}

	if clientIP := XForwardedFor(r, trustedProxy); clientIP != "" {
		return clientIP
	}

	if clientIP := parseIP(r.Header.Get("X-Real-IP")); clientIP != "" {
		return clientIP
	}
	return remoteIP
}

// XForwardedFor returns the rightmost address of X-Forwarded-For, which isn't
// a trusted proxy.
func XForwardedFor(r *http.Request, trustedProxy func(ip string) bool) string {
	for _, value := range slices.Backward(r.Header.Values("X-Forwarded-For")) {
		for _, item := range slices.Backward(strings.Split(value, ",")) {
			ip := parseIP(item)
			if ip == "" {
				return ""
			} else if !trustedProxy(ip) {
				return ip
			}
		}
	}
	return ""
}

func parseIP(s string) string {
	ip := dropIPv6zone(strings.TrimSpace(s))
	if net.ParseIP(ip) == nil {
		return ""
	}
	return ip
}

func dropIPv6zone(address string) string {
	before, _, _ := strings.Cut(address, "%")
	return before
}

// FindRemoteIP returns the remote client IP address without considering HTTP
// headers.
func FindRemoteIP(r *http.Request) string {
	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteIP = r.RemoteAddr
	}
	return dropIPv6zone(remoteIP)
}
