// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt holds the Roul Ette persona instruction.
//
// The persona is stored as a versioned asset compiled into the binary and is
// sent to the provider unmodified on every exchange. New wording ships as a
// new file (persona_v2.txt) and a new entry in the versions table; existing
// versions never change.
package prompt

import (
	_ "embed"
	"fmt"
	"sort"
)

// DefaultVersion is the persona version used when none is configured.
const DefaultVersion = "v1"

//go:embed persona_v1.txt
var personaV1 string

var versions = map[string]string{
	"v1": personaV1,
}

// Persona returns the persona text for the given version.
func Persona(version string) (string, error) {
	if version == "" {
		version = DefaultVersion
	}
	text, ok := versions[version]
	if !ok {
		return "", fmt.Errorf("unknown persona version %q", version)
	}
	return text, nil
}

// Versions returns the known persona versions in sorted order.
func Versions() []string {
	out := make([]string, 0, len(versions))
	for v := range versions {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
