/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package extract turns raw signal payloads into normalized observables.
//
// Normalization canonicalizes a typed raw value into a stable comparable
// string. A value that fails normalization is simply dropped from extraction
// output; it never fails the ingest request.
package extract

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/carverauto/sentinelcase/pkg/models"
)

// ErrRejected indicates a candidate value failed normalization and produces
// no observable.
var ErrRejected = errors.New("value rejected")

var (
	hex32Re = regexp.MustCompile(`^[a-f0-9]{32}$`)
	hex64Re = regexp.MustCompile(`^[a-f0-9]{64}$`)
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	urlRe   = regexp.MustCompile(`https?://[^\s"'>]+`)
)

// Normalize canonicalizes raw into the stable form for the given observable
// type. It returns ErrRejected (possibly wrapped) for malformed values.
func Normalize(obsType models.ObservableType, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", ErrRejected
	}

	switch obsType {
	case models.ObservableTypeIP:
		return normalizeIP(value)
	case models.ObservableTypeDomain:
		return normalizeDomain(value)
	case models.ObservableTypeURL:
		return normalizeURL(value)
	case models.ObservableTypeSHA256:
		return normalizeHex(value, hex64Re)
	case models.ObservableTypeMD5:
		return normalizeHex(value, hex32Re)
	case models.ObservableTypeEmail:
		return normalizeEmail(value)
	case models.ObservableTypeUsername:
		// Collapse escaped DOMAIN\\user separators to a single backslash.
		return strings.ToLower(strings.ReplaceAll(value, `\\`, `\`)), nil
	case models.ObservableTypeHostname:
		return strings.ToLower(strings.TrimSuffix(value, ".")), nil
	default:
		return "", fmt.Errorf("%w: unsupported type %q", ErrRejected, obsType)
	}
}

func normalizeIP(value string) (string, error) {
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrRejected, err)
	}

	return addr.String(), nil
}

func normalizeDomain(value string) (string, error) {
	host := strings.ToLower(strings.TrimSuffix(value, "."))

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("%w: idna: %s", ErrRejected, err)
	}

	return ascii, nil
}

func normalizeURL(value string) (string, error) {
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrRejected, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		scheme = "http"
	}

	host, err := normalizeDomain(parsed.Hostname())
	if err != nil {
		return "", err
	}

	port := parsed.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	netloc := host
	if port != "" {
		netloc += ":" + port
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	out := scheme + "://" + netloc + path
	if parsed.RawQuery != "" {
		out += "?" + parsed.RawQuery
	}

	// Fragment intentionally dropped.
	return out, nil
}

func normalizeHex(value string, re *regexp.Regexp) (string, error) {
	v := strings.ToLower(value)
	if !re.MatchString(v) {
		return "", fmt.Errorf("%w: malformed hex digest", ErrRejected)
	}

	return v, nil
}

func normalizeEmail(value string) (string, error) {
	m := emailRe.FindString(value)
	if m == "" {
		return "", fmt.Errorf("%w: no address found", ErrRejected)
	}

	return strings.ToLower(m), nil
}

// formatScalar renders a payload scalar for normalization. JSON numbers that
// are integral print without a decimal point.
func formatScalar(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10), true
		}

		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	default:
		return "", false
	}
}
