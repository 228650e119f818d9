/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"fmt"
	"strings"
)

// icyBlockSize is the metadata padding granularity: the length prefix
// counts 16-byte units.
const icyBlockSize = 16

// maxMetadataBlocks caps the record at what a single length byte can
// describe.
const maxMetadataBlocks = 255

// EncodeMetadata builds an ICY-style metadata record: one length byte
// counting 16-byte units, followed by that many zero-padded blocks holding
// the StreamTitle payload.
func EncodeMetadata(title, artist string) []byte {
	text := title
	if artist != "" {
		text = title + " - " + artist
	}
	text = strings.ReplaceAll(text, "'", "")

	payload := fmt.Sprintf("StreamTitle='%s';", text)

	blocks := (len(payload) + icyBlockSize - 1) / icyBlockSize
	if blocks > maxMetadataBlocks {
		blocks = maxMetadataBlocks
		payload = payload[:blocks*icyBlockSize]
	}

	record := make([]byte, 1+blocks*icyBlockSize)
	record[0] = byte(blocks)
	copy(record[1:], payload)
	return record
}
