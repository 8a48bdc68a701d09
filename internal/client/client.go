// Package client implements the TCP client used by kvs-client: connect
// once, then issue any number of set/get/remove requests over the same
// connection.
package client

import (
	"bufio"
	"encoding/json"
	"net"

	"github.com/jassi-singh/toycask/internal/kvserr"
	"github.com/jassi-singh/toycask/internal/protocol"
)

// Client is a connected session with a kvs-server instance.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	dec    *json.Decoder
}

// Connect dials addr and returns a ready-to-use Client.
func Connect(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	reader := bufio.NewReader(conn)
	return &Client{
		conn:   conn,
		reader: reader,
		writer: bufio.NewWriter(conn),
		dec:    json.NewDecoder(reader),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Set stores value under key.
func (c *Client) Set(key, value string) error {
	if err := c.roundTrip(protocol.NewSetRequest(key, value)); err != nil {
		return err
	}
	var resp protocol.SetResponse
	if err := c.dec.Decode(&resp); err != nil {
		return err
	}
	if resp.Err != "" {
		return &kvserr.ServerError{Message: resp.Err}
	}
	return nil
}

// Get retrieves the value for key, returning nil if it is absent.
func (c *Client) Get(key string) (*string, error) {
	if err := c.roundTrip(protocol.NewGetRequest(key)); err != nil {
		return nil, err
	}
	var resp protocol.GetResponse
	if err := c.dec.Decode(&resp); err != nil {
		return nil, err
	}
	if resp.Err != "" {
		return nil, &kvserr.ServerError{Message: resp.Err}
	}
	return resp.Value, nil
}

// Remove deletes key.
func (c *Client) Remove(key string) error {
	if err := c.roundTrip(protocol.NewRemoveRequest(key)); err != nil {
		return err
	}
	var resp protocol.RemoveResponse
	if err := c.dec.Decode(&resp); err != nil {
		return err
	}
	if resp.Err != "" {
		return &kvserr.ServerError{Message: resp.Err}
	}
	return nil
}

func (c *Client) roundTrip(req protocol.Request) error {
	if err := json.NewEncoder(c.writer).Encode(req); err != nil {
		return err
	}
	return c.writer.Flush()
}
