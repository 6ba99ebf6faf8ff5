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

package extract

import (
	"strings"

	"github.com/carverauto/sentinelcase/pkg/models"
)

// Candidate is one extracted (type, value, role, context) tuple.
type Candidate struct {
	Type    models.ObservableType `json:"type"`
	Value   string                `json:"value"`
	Role    string                `json:"role"`
	Context map[string]string     `json:"context,omitempty"`
}

type typeRole struct {
	obsType models.ObservableType
	role    string
}

// keyMap maps well-known payload field names to an observable type and
// semantic role. Consulted at every object-node visit.
var keyMap = map[string]typeRole{
	"src_ip":   {models.ObservableTypeIP, "src_ip"},
	"dst_ip":   {models.ObservableTypeIP, "dst_ip"},
	"ip":       {models.ObservableTypeIP, "ip"},
	"domain":   {models.ObservableTypeDomain, "domain"},
	"url":      {models.ObservableTypeURL, "url"},
	"sha256":   {models.ObservableTypeSHA256, "file_hash"},
	"md5":      {models.ObservableTypeMD5, "file_hash"},
	"email":    {models.ObservableTypeEmail, "user"},
	"user":     {models.ObservableTypeUsername, "user"},
	"username": {models.ObservableTypeUsername, "user"},
	"host":     {models.ObservableTypeHostname, "host"},
	"hostname": {models.ObservableTypeHostname, "host"},
}

type candidateKey struct {
	obsType models.ObservableType
	value   string
	role    string
}

// Extract walks a decoded JSON payload and returns the deduplicated set of
// observable candidates. Payload must be the generic encoding/json shape
// (map[string]interface{}, []interface{}, scalars).
//
// Dedup key is (type, value, role); when the same tuple is produced twice the
// later context wins. Output order is not guaranteed.
func Extract(payload interface{}) []Candidate {
	dedup := make(map[candidateKey]Candidate)

	walk(payload, dedup)

	out := make([]Candidate, 0, len(dedup))
	for _, c := range dedup {
		out = append(out, c)
	}

	return out
}

func walk(node interface{}, dedup map[candidateKey]Candidate) {
	switch v := node.(type) {
	case map[string]interface{}:
		for key, child := range v {
			if tr, ok := keyMap[key]; ok {
				if raw, scalar := formatScalar(child); scalar {
					emit(dedup, tr.obsType, raw, tr.role, map[string]string{"key": key})
				}
			}

			// Traversal continues into the value regardless of a key match.
			walk(child, dedup)
		}
	case []interface{}:
		for _, child := range v {
			walk(child, dedup)
		}
	case string:
		scanString(v, dedup)
	}
}

// scanString pattern-matches free text for URLs and email addresses. URL
// matches get full normalization; email matches are lowercased only.
func scanString(s string, dedup map[candidateKey]Candidate) {
	for _, m := range urlRe.FindAllString(s, -1) {
		emit(dedup, models.ObservableTypeURL, m, "url", nil)
	}

	for _, m := range emailRe.FindAllString(s, -1) {
		key := candidateKey{models.ObservableTypeEmail, strings.ToLower(m), "user"}
		dedup[key] = Candidate{
			Type:  models.ObservableTypeEmail,
			Value: key.value,
			Role:  "user",
		}
	}
}

func emit(dedup map[candidateKey]Candidate, obsType models.ObservableType, raw, role string, context map[string]string) {
	value, err := Normalize(obsType, raw)
	if err != nil {
		// Malformed candidate: drop silently, extraction continues.
		return
	}

	dedup[candidateKey{obsType, value, role}] = Candidate{
		Type:    obsType,
		Value:   value,
		Role:    role,
		Context: context,
	}
}
