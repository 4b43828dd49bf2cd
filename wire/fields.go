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

package wire

import "strings"

// EncodeFields joins fields with newlines into a frame payload. Field
// values are names, numbers, or operator keywords and never themselves
// contain a newline, so no escaping is needed; per spec.md §6 the wire
// grammar is deliberately minimal.
func EncodeFields(fields ...string) []byte {
	return []byte(strings.Join(fields, "\n"))
}

// DecodeFields splits a frame payload back into its newline-delimited
// fields. An empty payload decodes to a single empty field.
func DecodeFields(payload []byte) []string {
	return strings.Split(string(payload), "\n")
}
