// Copyright (C) 2024 coldb Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package wire implements the fixed-header frame protocol that carries
// operator records between cmd/coldb and cmd/coldbd, grounded on
// SnellerInc-sneller/tenant/tnproto's magic-tagged fixed-size header read
// (io.ReadFull + encoding/binary) and spec.md §6's 16-byte frame layout:
// magic(8) | kind(4) | length(4). Payloads are newline-delimited textual
// fields; the command grammar/parser itself is out of core scope (§6), so
// this package only frames and unframes, leaving payload semantics to
// engine.Session's callers.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the fixed frame header length: magic(8) + kind(4) + length(4).
const HeaderSize = 16

// magic distinguishes a coldb frame from stray bytes on the wire; the high
// nibble is chosen, as the teacher's tnproto header does, so the value
// cannot be confused for a printable-text or common binary format prefix.
const magic uint64 = 0xc01db05e00000001

// MaxPayloadSize bounds a single frame's payload, guarding against a
// corrupt or hostile length field forcing an unbounded allocation.
const MaxPayloadSize = 64 << 20

// Kind tags a frame's operator record, one value per engine.Session method
// plus the Attach handshake, per spec.md §4.K's twelve operator kinds.
type Kind uint32

const (
	KindAttach Kind = iota
	KindCreateDatabase
	KindCreateTable
	KindCreateColumn
	KindCreateIndex
	KindInsert
	KindLoadHeader
	KindLoadRows
	KindLoadConclude
	KindDelete
	KindUpdate
	KindSelect
	KindFetch
	KindAggregate
	KindAddSub
	KindJoin
	KindPrint
	KindBatchOpen
	KindBatchClose

	// KindOK and KindError frame a response rather than a request: KindOK's
	// payload is a printable result (possibly empty), KindError's is a
	// short human-readable message.
	KindOK
	KindError
)

// Frame is a decoded wire message: its operator (or response) kind and raw
// payload bytes.
type Frame struct {
	Kind    Kind
	Payload []byte
}

// WriteFrame writes f to w as a 16-byte header followed by its payload.
func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return fmt.Errorf("wire: payload of %d bytes exceeds MaxPayloadSize", len(f.Payload))
	}
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint64(hdr[0:8], magic)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(f.Kind))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(len(f.Payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(f.Payload) == 0 {
		return nil
	}
	_, err := w.Write(f.Payload)
	return err
}

// ReadFrame reads one frame from r, validating the magic and bounding the
// payload length before allocating its buffer.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	got := binary.LittleEndian.Uint64(hdr[0:8])
	if got != magic {
		return Frame{}, fmt.Errorf("wire: bad frame magic %#x", got)
	}
	kind := Kind(binary.LittleEndian.Uint32(hdr[8:12]))
	length := binary.LittleEndian.Uint32(hdr[12:16])
	if length > MaxPayloadSize {
		return Frame{}, fmt.Errorf("wire: frame length %d exceeds MaxPayloadSize", length)
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Kind: kind, Payload: payload}, nil
}

// OK builds a success response frame.
func OK(payload string) Frame {
	return Frame{Kind: KindOK, Payload: []byte(payload)}
}

// ErrorFrame builds an error response frame from err's message.
func ErrorFrame(err error) Frame {
	return Frame{Kind: KindError, Payload: []byte(err.Error())}
}
