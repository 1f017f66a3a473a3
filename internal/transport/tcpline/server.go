// Package tcpline serves the trainer protocol: one JSON object per line over
// TCP, strict request/response, one connection at a time.
package tcpline

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"sync/atomic"

	"meshgym.ai/internal/protocol"
	"meshgym.ai/internal/sim/env"
)

type Server struct {
	env *env.Env
	log *log.Logger

	ln      net.Listener
	running atomic.Bool
}

func NewServer(e *env.Env, logger *log.Logger) *Server {
	return &Server{env: e, log: logger}
}

// Serve accepts connections strictly one at a time: while a session is
// active the listener does not accept, so scene state is never mutated
// concurrently and pending trainers queue in the backlog. Handler failures
// end that session only; the loop keeps accepting until Close.
func (s *Server) Serve(ln net.Listener) error {
	s.ln = ln
	s.running.Store(true)
	for s.running.Load() {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Printf("accept: %v", err)
			continue
		}
		s.log.Printf("trainer connected: %s", conn.RemoteAddr())
		s.handleConn(conn)
		_ = conn.Close()
		s.log.Printf("trainer disconnected: %s", conn.RemoteAddr())
	}
	return nil
}

// Close stops the accept loop. The active session, if any, runs to its own
// end; only new accepts are cut off.
func (s *Server) Close() {
	s.running.Store(false)
	if s.ln != nil {
		_ = s.ln.Close()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Printf("handler panic: %v", r)
		}
	}()

	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)

	for {
		line, err := br.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				s.log.Printf("read: %v", err)
			}
			return
		}

		req, err := protocol.DecodeRequest(line)
		if err != nil {
			// Malformed framing is fatal to the session, not the worker.
			s.log.Printf("invalid json: %q", line)
			return
		}

		reply, last := s.dispatch(req)
		if err := writeLine(bw, reply); err != nil {
			s.log.Printf("write: %v", err)
			return
		}
		if last {
			return
		}
	}
}

// dispatch executes one command. last reports that the session must end
// after the reply is written.
func (s *Server) dispatch(req protocol.Request) (reply any, last bool) {
	switch req.Cmd {
	case protocol.CmdReset:
		return protocol.ResetReply{Obs: s.env.Reset()}, false

	case protocol.CmdStep:
		obs, reward, done, info := s.env.Step(req.Action)
		return protocol.StepReply{Obs: obs, Reward: reward, Done: done, Info: info}, false

	case protocol.CmdPing:
		return protocol.PongReply{Pong: true}, false

	case protocol.CmdSave:
		if req.Path == "" {
			return protocol.SaveReply{Saved: false, Error: protocol.ErrNoPath}, false
		}
		if err := s.env.Save(req.Path); err != nil {
			return protocol.SaveReply{Saved: false, Error: err.Error()}, false
		}
		return protocol.SaveReply{Saved: true, Path: req.Path}, false

	case protocol.CmdClose:
		return protocol.CloseReply{Closed: true}, true

	default:
		return protocol.ErrorReply{Error: protocol.ErrUnknownCmd}, false
	}
}

func writeLine(bw *bufio.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := bw.Write(b); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	return bw.Flush()
}
