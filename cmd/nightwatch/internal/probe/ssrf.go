// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package probe

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrSSRFBlocked is returned when a probe target is a metadata or
// link-local address.
var ErrSSRFBlocked = errors.New("probe target blocked")

var linkLocal = &net.IPNet{IP: net.ParseIP("169.254.0.0"), Mask: net.CIDRMask(16, 32)}

// IsURLSafe rejects probe targets that point at cloud metadata or the
// link-local range. Loopback, private ranges and hostnames are allowed,
// since every declared endpoint is expected to be on the local host or
// its container network.
//
// # Inputs
//
//   - rawURL: Any URL with a host; "tcp://host:port" is accepted.
//
// # Outputs
//
//   - error: wraps ErrSSRFBlocked when the host is blocked, or describes
//     why the URL could not be parsed.
func IsURLSafe(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("URL has no host")
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return nil
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("%w: cloud metadata endpoint", ErrSSRFBlocked)
	}
	if linkLocal.Contains(ip) {
		return fmt.Errorf("%w: link-local address", ErrSSRFBlocked)
	}
	return nil
}
