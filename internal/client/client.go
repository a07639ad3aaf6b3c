// Package client is a small TCP client for the kvs wire protocol: connect
// once, then issue any number of get/set/remove round trips over the same
// connection.
package client

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/cedrickchee/bitcask/internal/kvserr"
	"github.com/cedrickchee/bitcask/internal/protocol"
)

// Client holds one connection to a kvs server.
type Client struct {
	conn net.Conn
}

// Connect dials addr and returns a Client ready to issue requests.
func Connect(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, kvserr.Wrap(kvserr.IoError, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Get fetches the value for key, returning ok=false if the server reports
// the key is absent.
func (c *Client) Get(key string) (value string, ok bool, err error) {
	if err := protocol.WriteFrame(c.conn, protocol.NewGetRequest(key)); err != nil {
		return "", false, kvserr.Wrap(kvserr.IoError, err)
	}

	env, err := c.readResponse(protocol.OpGet)
	if err != nil {
		return "", false, err
	}

	var resp protocol.GetResponse
	if err := json.Unmarshal(env.Body, &resp); err != nil {
		return "", false, kvserr.Wrapf(kvserr.ProtocolError, err, "decode get response")
	}
	if resp.Err != "" {
		return "", false, kvserr.New(errKind(resp.ErrKind), resp.Err)
	}
	return resp.Value, resp.Found, nil
}

// Set binds key to value.
func (c *Client) Set(key, value string) error {
	if err := protocol.WriteFrame(c.conn, protocol.NewSetRequest(key, value)); err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}

	env, err := c.readResponse(protocol.OpSet)
	if err != nil {
		return err
	}

	var resp protocol.SetResponse
	if err := json.Unmarshal(env.Body, &resp); err != nil {
		return kvserr.Wrapf(kvserr.ProtocolError, err, "decode set response")
	}
	if resp.Err != "" {
		return kvserr.New(errKind(resp.ErrKind), resp.Err)
	}
	return nil
}

// Remove deletes key.
func (c *Client) Remove(key string) error {
	if err := protocol.WriteFrame(c.conn, protocol.NewRemoveRequest(key)); err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}

	env, err := c.readResponse(protocol.OpRemove)
	if err != nil {
		return err
	}

	var resp protocol.RemoveResponse
	if err := json.Unmarshal(env.Body, &resp); err != nil {
		return kvserr.Wrapf(kvserr.ProtocolError, err, "decode remove response")
	}
	if resp.Err != "" {
		return kvserr.New(errKind(resp.ErrKind), resp.Err)
	}
	return nil
}

// errKind turns the err_kind string a server response carries back into a
// kvserr.Kind, so callers (the rm CLI subcommand in particular) can branch
// on kvserr.KeyNotFound instead of matching on message text.
func errKind(s string) kvserr.Kind {
	if s == "" {
		return kvserr.ProtocolError
	}
	return kvserr.Kind(s)
}

// readResponse reads the next frame and checks it tags the operation the
// caller expects: a mismatched variant is a ProtocolError, same as a
// connection failure reading the frame is an IoError.
func (c *Client) readResponse(want protocol.OpKind) (protocol.Response, error) {
	var env protocol.Response
	if err := protocol.ReadFrame(c.conn, &env); err != nil {
		return protocol.Response{}, kvserr.Wrap(kvserr.IoError, err)
	}
	if env.Op != want {
		return protocol.Response{}, kvserr.New(kvserr.ProtocolError,
			fmt.Sprintf("expected %q response, got %q", want, env.Op))
	}
	return env, nil
}
