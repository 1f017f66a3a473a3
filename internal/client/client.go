// Package client speaks the worker's line protocol from the trainer side.
// The bot command and the integration tests drive workers through it.
package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"

	"meshgym.ai/internal/protocol"
)

type Client struct {
	conn net.Conn
	br   *bufio.Reader
}

func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, br: bufio.NewReader(conn)}, nil
}

// Close tears down the transport without a close command (the worker treats
// it as the peer going away).
func (c *Client) Close() error { return c.conn.Close() }

// RoundTrip sends one request line and decodes the single reply line into
// out. Exposed so tests can send arbitrary commands.
func (c *Client) RoundTrip(req any, out any) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if _, err := c.conn.Write(b); err != nil {
		return err
	}
	line, err := c.br.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	return json.Unmarshal(line, out)
}

// SendRaw writes bytes as-is; for protocol-abuse tests.
func (c *Client) SendRaw(b []byte) error {
	_, err := c.conn.Write(b)
	return err
}

func (c *Client) Reset() (protocol.Observation, error) {
	var rep protocol.ResetReply
	err := c.RoundTrip(protocol.Request{Cmd: protocol.CmdReset}, &rep)
	return rep.Obs, err
}

func (c *Client) Step(action int) (protocol.StepReply, error) {
	var rep protocol.StepReply
	err := c.RoundTrip(protocol.Request{Cmd: protocol.CmdStep, Action: action}, &rep)
	return rep, err
}

func (c *Client) Ping() error {
	var rep protocol.PongReply
	if err := c.RoundTrip(protocol.Request{Cmd: protocol.CmdPing}, &rep); err != nil {
		return err
	}
	if !rep.Pong {
		return fmt.Errorf("ping: unexpected reply %+v", rep)
	}
	return nil
}

func (c *Client) Save(path string) (protocol.SaveReply, error) {
	var rep protocol.SaveReply
	err := c.RoundTrip(protocol.Request{Cmd: protocol.CmdSave, Path: path}, &rep)
	return rep, err
}

// End sends the close command and then drops the transport.
func (c *Client) End() error {
	var rep protocol.CloseReply
	if err := c.RoundTrip(protocol.Request{Cmd: protocol.CmdClose}, &rep); err != nil {
		_ = c.conn.Close()
		return err
	}
	return c.conn.Close()
}
