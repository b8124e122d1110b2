package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"
)

// ValkeyConfig holds connection parameters for a Valkey/Redis-compatible
// server.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	TLS          bool
}

// ValkeyProvider implements Provider over a single RESP connection guarded
// by a mutex. The connection is re-established after network errors.
type ValkeyProvider struct {
	cfg ValkeyConfig

	mu   sync.Mutex
	conn net.Conn
	rd   *bufio.Reader
	wr   *bufio.Writer
}

// NewValkeyProvider connects to the configured server and pings it so bad
// credentials or connectivity fail fast.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}

	p := &ValkeyProvider{cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	rep, err := p.do(ctx, []byte("PING"))
	if err != nil {
		return nil, err
	}
	if rep.kind != '+' || string(rep.data) != "PONG" {
		return nil, fmt.Errorf("unexpected PING reply: %s", rep.data)
	}
	return p, nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	rep, err := p.do(ctx, []byte("GET"), []byte(key))
	if err != nil {
		return nil, err
	}
	if rep.isNil {
		return nil, ErrCacheMiss
	}
	if rep.kind != '$' {
		return nil, fmt.Errorf("unexpected GET reply type %q", rep.kind)
	}
	return rep.data, nil
}

// Set stores bytes with the provided TTL.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	rep, err := p.do(ctx, setArgs(key, value, ttl, false)...)
	if err != nil {
		return err
	}
	if rep.kind != '+' || string(rep.data) != "OK" {
		return fmt.Errorf("unexpected SET reply: %s", rep.data)
	}
	return nil
}

// SetNX stores the value only if the key does not already exist.
func (p *ValkeyProvider) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	rep, err := p.do(ctx, setArgs(key, value, ttl, true)...)
	if err != nil {
		return false, err
	}
	if rep.isNil {
		return false, nil
	}
	return rep.kind == '+', nil
}

// Del removes a key.
func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	_, err := p.do(ctx, []byte("DEL"), []byte(key))
	return err
}

// Close tears down the connection.
func (p *ValkeyProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	p.rd = nil
	p.wr = nil
	return err
}

func setArgs(key string, value []byte, ttl time.Duration, nx bool) [][]byte {
	args := [][]byte{[]byte("SET"), []byte(key), value}
	if ttl > 0 {
		args = append(args, []byte("PX"), []byte(strconv.FormatInt(ttl.Milliseconds(), 10)))
	}
	if nx {
		args = append(args, []byte("NX"))
	}
	return args
}

type reply struct {
	kind  byte
	data  []byte
	isNil bool
}

// serverError marks a RESP error reply, which must not trigger a reconnect.
type serverError struct {
	msg string
}

func (e *serverError) Error() string { return e.msg }

func (p *ValkeyProvider) do(ctx context.Context, args ...[]byte) (reply, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return reply{}, err
		}
		if err := p.ensureConn(ctx); err != nil {
			lastErr = err
			continue
		}
		rep, err := p.exchange(args)
		if err == nil {
			return rep, nil
		}
		var srvErr *serverError
		if errors.As(err, &srvErr) {
			return reply{}, err
		}
		lastErr = err
		p.dropConn()
	}
	return reply{}, lastErr
}

func (p *ValkeyProvider) ensureConn(ctx context.Context) error {
	if p.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: p.cfg.DialTimeout}
	var (
		conn net.Conn
		err  error
	)
	if p.cfg.TLS {
		host, _, splitErr := net.SplitHostPort(p.cfg.Addr)
		if splitErr != nil {
			host = p.cfg.Addr
		}
		conn, err = tls.DialWithDialer(&dialer, "tcp", p.cfg.Addr, &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: host,
		})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	}
	if err != nil {
		return err
	}

	p.conn = conn
	p.rd = bufio.NewReader(conn)
	p.wr = bufio.NewWriter(conn)

	if err := p.handshake(); err != nil {
		p.dropConn()
		return err
	}
	return nil
}

func (p *ValkeyProvider) handshake() error {
	if p.cfg.Password != "" {
		args := [][]byte{[]byte("AUTH")}
		if p.cfg.Username != "" {
			args = append(args, []byte(p.cfg.Username))
		}
		args = append(args, []byte(p.cfg.Password))
		rep, err := p.exchange(args)
		if err != nil {
			return err
		}
		if rep.kind != '+' {
			return fmt.Errorf("auth failed: %s", rep.data)
		}
	}
	if p.cfg.DB > 0 {
		rep, err := p.exchange([][]byte{[]byte("SELECT"), []byte(strconv.Itoa(p.cfg.DB))})
		if err != nil {
			return err
		}
		if rep.kind != '+' {
			return fmt.Errorf("select failed: %s", rep.data)
		}
	}
	return nil
}

func (p *ValkeyProvider) dropConn() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn = nil
	p.rd = nil
	p.wr = nil
}

// exchange writes one command array and reads one reply. Write errors are
// latched by the buffered writer and surface at Flush.
func (p *ValkeyProvider) exchange(args [][]byte) (reply, error) {
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout)); err != nil {
		return reply{}, err
	}
	p.wr.WriteString("*" + strconv.Itoa(len(args)) + "\r\n")
	for _, a := range args {
		p.wr.WriteString("$" + strconv.Itoa(len(a)) + "\r\n")
		p.wr.Write(a)
		p.wr.WriteString("\r\n")
	}
	if err := p.wr.Flush(); err != nil {
		return reply{}, err
	}
	return p.readReply()
}

func (p *ValkeyProvider) readReply() (reply, error) {
	if err := p.conn.SetReadDeadline(time.Now().Add(p.cfg.ReadTimeout)); err != nil {
		return reply{}, err
	}
	line, err := p.readLine()
	if err != nil {
		return reply{}, err
	}
	if len(line) == 0 {
		return reply{}, errors.New("empty reply")
	}

	kind, rest := line[0], line[1:]
	switch kind {
	case '+', ':':
		return reply{kind: kind, data: rest}, nil
	case '-':
		return reply{}, &serverError{msg: string(rest)}
	case '$':
		n, err := strconv.Atoi(string(rest))
		if err != nil {
			return reply{}, fmt.Errorf("bad bulk length %q", rest)
		}
		if n < 0 {
			return reply{isNil: true}, nil
		}
		buf := make([]byte, n+2)
		if _, err := io.ReadFull(p.rd, buf); err != nil {
			return reply{}, err
		}
		if buf[n] != '\r' || buf[n+1] != '\n' {
			return reply{}, errors.New("malformed bulk reply")
		}
		return reply{kind: '$', data: buf[:n]}, nil
	default:
		return reply{}, fmt.Errorf("unexpected reply prefix %q", kind)
	}
}

func (p *ValkeyProvider) readLine() ([]byte, error) {
	line, err := p.rd.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, errors.New("malformed reply line")
	}
	return line[:len(line)-2], nil
}
