// Package config layers command-line flags over environment variables for
// the server and the networked client.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os/user"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hersh/stackrush/internal/player"
	"github.com/hersh/stackrush/internal/protocol"
)

const (
	DefaultPort            = "8080"
	DefaultDisconnectGrace = 10 * time.Second
	DefaultCountdown       = 3
	DefaultServerURL       = "ws://localhost:8080/ws"
)

var ErrInvalid = errors.New("invalid configuration")

// Getenv matches os.Getenv.
type Getenv func(string) string

type Server struct {
	Addr            string
	DisconnectGrace time.Duration
	Countdown       int
	TokenSecret     string
	TokenTTL        time.Duration
	Debug           bool
}

// LoadServer reads the server settings. Flags win over STACKRUSH_* variables,
// which win over PORT. A missing secret is replaced by a random one, so
// tokens only survive as long as the process.
func LoadServer(args []string, getenv Getenv) (Server, error) {
	port := getenv("PORT")
	if port == "" {
		port = DefaultPort
	}
	env := envReader{getenv: getenv}
	def := Server{
		Addr:            env.str("STACKRUSH_ADDR", ":"+port),
		DisconnectGrace: env.duration("STACKRUSH_DISCONNECT_GRACE", DefaultDisconnectGrace),
		Countdown:       env.integer("STACKRUSH_COUNTDOWN", DefaultCountdown),
		TokenSecret:     getenv("STACKRUSH_TOKEN_SECRET"),
		TokenTTL:        env.duration("STACKRUSH_TOKEN_TTL", 2*time.Hour),
		Debug:           env.boolean("STACKRUSH_DEBUG", false),
	}
	if env.err != nil {
		return Server{}, env.err
	}

	var c Server
	fs := flag.NewFlagSet("stackrush-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&c.Addr, "addr", def.Addr, "listen address")
	fs.DurationVar(&c.DisconnectGrace, "grace", def.DisconnectGrace, "how long a dropped player's seat is held")
	fs.IntVar(&c.Countdown, "countdown", def.Countdown, "countdown seconds before a match")
	fs.StringVar(&c.TokenSecret, "secret", def.TokenSecret, "HMAC secret for session tokens")
	fs.DurationVar(&c.TokenTTL, "token-ttl", def.TokenTTL, "session token lifetime")
	fs.BoolVar(&c.Debug, "debug", def.Debug, "development logging")
	if err := fs.Parse(args); err != nil {
		return Server{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.TokenSecret == "" {
		c.TokenSecret = uuid.NewString()
	}
	return c, c.Validate()
}

func (c Server) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: empty listen address", ErrInvalid)
	case c.DisconnectGrace <= 0:
		return fmt.Errorf("%w: disconnect grace must be positive", ErrInvalid)
	case c.Countdown < 0:
		return fmt.Errorf("%w: countdown must not be negative", ErrInvalid)
	case c.TokenTTL <= 0:
		return fmt.Errorf("%w: token ttl must be positive", ErrInvalid)
	}
	return nil
}

type Client struct {
	ServerURL string
	Name      string
	Room      string
	Token     string
	Encoding  string
	LogFile   string
}

// LoadClient reads the client settings. The name defaults to the OS user.
func LoadClient(args []string, getenv Getenv) (Client, error) {
	def := Client{
		ServerURL: getenv("STACKRUSH_SERVER"),
		Name:      getenv("STACKRUSH_NAME"),
		Encoding:  getenv("STACKRUSH_ENCODING"),
	}
	if def.ServerURL == "" {
		def.ServerURL = DefaultServerURL
	}

	var c Client
	fs := flag.NewFlagSet("stackrush", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&c.ServerURL, "server", def.ServerURL, "WebSocket server address")
	fs.StringVar(&c.Name, "name", def.Name, "player name (defaults to OS username)")
	fs.StringVar(&c.Room, "room", "", "room code to join (empty creates a room)")
	fs.StringVar(&c.Token, "token", "", "session token to resume a seat")
	fs.StringVar(&c.Encoding, "encoding", def.Encoding, "wire encoding: json or msgpack")
	fs.StringVar(&c.LogFile, "log", "", "write logs to this file")
	if err := fs.Parse(args); err != nil {
		return Client{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Name == "" {
		if u, err := user.Current(); err == nil && u.Username != "" {
			c.Name = u.Username
		} else {
			c.Name = "Player"
		}
	}
	return c, c.Validate()
}

func (c Client) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("%w: server must be a ws:// or wss:// URL, got %q", ErrInvalid, c.ServerURL)
	}
	if c.Room != "" && !player.ValidRoomCode(c.Room) {
		return fmt.Errorf("%w: room code %q", ErrInvalid, c.Room)
	}
	if _, err := protocol.CodecFor(c.Encoding); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// DialURL is the websocket URL with the room, token and encoding query.
func (c Client) DialURL() string {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return c.ServerURL
	}
	q := u.Query()
	if c.Room != "" {
		q.Set("room", c.Room)
	}
	if c.Token != "" {
		q.Set("token", c.Token)
	}
	if c.Encoding != "" {
		q.Set("encoding", c.Encoding)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type envReader struct {
	getenv Getenv
	err    error
}

func (e *envReader) str(key, def string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return def
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v)
		return def
	}
	return d
}

func (e *envReader) integer(key string, def int) int {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v)
		return def
	}
	return n
}

func (e *envReader) boolean(key string, def bool) bool {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v)
		return def
	}
	return b
}

func (e *envReader) fail(key, value string) {
	if e.err == nil {
		e.err = fmt.Errorf("%w: %s=%q", ErrInvalid, key, value)
	}
}
