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

// Command coldbd is the coldb daemon: it launches the engine against a
// persistence directory and serves operator frames over a Unix-domain
// socket, one session per connection. Grounded on
// cmd/snellerd/run_daemon.go's flag.NewFlagSet daemon setup and
// signal.Notify/context.WithTimeout graceful-shutdown sequence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/coldb-project/coldb/config"
	"github.com/coldb-project/coldb/engine"
	"github.com/coldb-project/coldb/wire"
)

func main() {
	logger := log.New(os.Stderr, "coldbd: ", log.LstdFlags)

	fs := flag.NewFlagSet("coldbd", flag.ExitOnError)
	cfg, err := config.ParseFlags(fs, os.Args[1:])
	if err != nil {
		logger.Fatalf("parsing flags: %s", err)
	}

	eng, err := engine.Launch(cfg.Dir, cfg.Workers)
	if err != nil {
		logger.Fatalf("launching engine at %s: %s", cfg.Dir, err)
	}

	os.Remove(cfg.Sock)
	listener, err := net.Listen("unix", cfg.Sock)
	if err != nil {
		logger.Fatalf("listening on %s: %s", cfg.Sock, err)
	}
	logger.Printf("listening on %s (persistence dir %s, %d workers)", cfg.Sock, cfg.Dir, cfg.Workers)

	srv := &server{eng: eng, logger: logger}

	var wg sync.WaitGroup
	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		srv.acceptLoop(listener, &wg)
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Println("shutting down")
	listener.Close()
	<-acceptDone

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Println("timed out waiting for sessions to finish")
	}

	if err := eng.Shutdown(); err != nil {
		logger.Fatalf("shutting down engine: %s", err)
	}
	os.Remove(cfg.Sock)
}

type server struct {
	eng    *engine.Engine
	logger *log.Logger
}

func (s *server) acceptLoop(l net.Listener, wg *sync.WaitGroup) {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Printf("accept: %s", err)
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serve(conn)
		}()
	}
}

// serve runs one session to completion on conn, per spec.md §5's single
// session per connection, sequential-operator model. Each connection is
// tagged with a random session id, logged alongside any frame-level
// failure so concurrent connections' log lines can be told apart.
func (s *server) serve(conn net.Conn) {
	defer conn.Close()
	sessionID := uuid.New()
	s.logger.Printf("session %s: connected from %s", sessionID, conn.RemoteAddr())
	defer s.logger.Printf("session %s: disconnected", sessionID)

	sess := s.eng.NewSession()
	for {
		f, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}
		resp := func() (resp wire.Frame) {
			defer func() {
				if r := recover(); r != nil {
					resp = wire.ErrorFrame(fmt.Errorf("internal error: %v", r))
				}
			}()
			return dispatch(sess, f)
		}()
		if resp.Kind == wire.KindError {
			s.logger.Printf("session %s: frame kind %d failed: %s", sessionID, f.Kind, resp.Payload)
		}
		if err := wire.WriteFrame(conn, resp); err != nil {
			return
		}
	}
}
