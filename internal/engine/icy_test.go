/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeMetadataFormat(t *testing.T) {
	record := EncodeMetadata("Song", "Artist")

	if len(record) == 0 {
		t.Fatal("empty record")
	}
	blocks := int(record[0])
	if len(record) != 1+blocks*16 {
		t.Fatalf("record length %d, want 1+%d*16", len(record), blocks)
	}

	payload := record[1:]
	want := "StreamTitle='Song - Artist';"
	if !strings.HasPrefix(string(payload), want) {
		t.Errorf("payload = %q, want prefix %q", payload, want)
	}

	// Everything past the payload must be zero padding.
	padding := payload[len(want):]
	if !bytes.Equal(padding, make([]byte, len(padding))) {
		t.Error("padding contains non-zero bytes")
	}
}

func TestEncodeMetadataNoArtist(t *testing.T) {
	record := EncodeMetadata("Station ID", "")
	if !strings.HasPrefix(string(record[1:]), "StreamTitle='Station ID';") {
		t.Errorf("payload = %q", record[1:])
	}
}

func TestEncodeMetadataStripsQuotes(t *testing.T) {
	record := EncodeMetadata("Don't Stop", "")
	if strings.Contains(string(record[1:]), "Don't") {
		t.Error("single quote not stripped from payload")
	}
}

func TestEncodeMetadataBlockCount(t *testing.T) {
	// 16-byte exact boundary: "StreamTitle='';" is 15 bytes, one char title
	// makes 16 exactly.
	record := EncodeMetadata("x", "")
	if record[0] != 1 {
		t.Errorf("blocks = %d, want 1", record[0])
	}
	if len(record) != 17 {
		t.Errorf("record length = %d, want 17", len(record))
	}
}
