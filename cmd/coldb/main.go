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

// Command coldb is an interactive client shell: it reads one operator per
// line from stdin, frames it over a Unix-domain socket to cmd/coldbd, and
// prints the response. Grounded on cmd/sdb's flag-parsed, single-binary
// CLI style (exitf/logf helpers, flag.Parse then dispatch on the first
// argument) adapted from a one-shot subcommand runner to a persistent
// socket-backed REPL, since spec.md §1 frames this as an interactive shell
// rather than a batch tool.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/coldb-project/coldb/wire"
)

var dashSock = flag.String("sock", "coldb.sock", "unix-domain socket path of a running coldbd")

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

// commandKinds maps the shell's command words to their wire.Kind, one
// entry per engine.Session operator plus the attach handshake.
var commandKinds = map[string]wire.Kind{
	"attach":          wire.KindAttach,
	"create-database": wire.KindCreateDatabase,
	"create-table":    wire.KindCreateTable,
	"create-column":   wire.KindCreateColumn,
	"create-index":    wire.KindCreateIndex,
	"insert":          wire.KindInsert,
	"load-header":     wire.KindLoadHeader,
	"load-rows":       wire.KindLoadRows,
	"load-conclude":   wire.KindLoadConclude,
	"delete":          wire.KindDelete,
	"update":          wire.KindUpdate,
	"select":          wire.KindSelect,
	"fetch":           wire.KindFetch,
	"aggregate":       wire.KindAggregate,
	"addsub":          wire.KindAddSub,
	"join":            wire.KindJoin,
	"print":           wire.KindPrint,
	"batch-open":      wire.KindBatchOpen,
	"batch-close":     wire.KindBatchClose,
}

func main() {
	flag.Parse()

	conn, err := net.Dial("unix", *dashSock)
	if err != nil {
		exitf("connecting to %s: %s\n", *dashSock, err)
	}
	defer conn.Close()

	if err := wire.WriteFrame(conn, wire.Frame{Kind: wire.KindAttach}); err != nil {
		exitf("attach: %s\n", err)
	}
	if _, err := wire.ReadFrame(conn); err != nil {
		exitf("attach: %s\n", err)
	}

	fmt.Fprintf(os.Stderr, "connected to %s\n", *dashSock)
	runShell(conn, os.Stdin, os.Stdout)
}

// runShell reads one command per line from in, sends the corresponding
// frame over conn, and writes the response to out. A line beginning with
// "#" or blank is ignored. A field literally "-" encodes as an empty
// string field, since the shell's space-separated syntax otherwise cannot
// express one (used for Select's and Join's optional position-vector
// names).
func runShell(conn net.Conn, in *os.File, out *os.File) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words := strings.Fields(line)
		kind, ok := commandKinds[words[0]]
		if !ok {
			fmt.Fprintf(out, "error: unknown command %q\n", words[0])
			continue
		}
		fields := words[1:]
		for i, f := range fields {
			if f == "-" {
				fields[i] = ""
			}
		}

		req := wire.Frame{Kind: kind, Payload: wire.EncodeFields(fields...)}
		if err := wire.WriteFrame(conn, req); err != nil {
			exitf("writing frame: %s\n", err)
		}
		resp, err := wire.ReadFrame(conn)
		if err != nil {
			exitf("reading response: %s\n", err)
		}
		switch resp.Kind {
		case wire.KindOK:
			if len(resp.Payload) > 0 {
				fmt.Fprintf(out, "%s\n", resp.Payload)
			} else {
				fmt.Fprintln(out, "ok")
			}
		case wire.KindError:
			fmt.Fprintf(out, "error: %s\n", resp.Payload)
		default:
			fmt.Fprintf(out, "error: unexpected response kind %d\n", resp.Kind)
		}
	}
}
