package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"solana-sales-bot/internal/logging"
)

// WSConfig tunes the websocket client.
type WSConfig struct {
	DialTimeout       time.Duration
	SubscribeTimeout  time.Duration
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	Commitment        string
	// Buffer is the per-subscription channel capacity.
	Buffer int
	Logger *logrus.Entry
}

// DefaultWSConfig returns production defaults.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		DialTimeout:       10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      20 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Commitment:        DefaultCommitment,
		Buffer:            1024,
	}
}

type subscription struct {
	filter   LogsFilter
	ch       chan LogNotification
	serverID int64
}

type subscribeAck struct {
	id  int64
	err error
}

// WSClientImpl implements WSClient on gorilla/websocket. A dropped connection
// is redialled with exponential backoff and every live subscription is
// re-established on the new connection; callers keep their channels.
type WSClientImpl struct {
	endpoint string
	cfg      WSConfig
	log      *logrus.Entry

	connMu sync.Mutex // guards conn and serialises writes
	conn   *websocket.Conn

	mu         sync.Mutex
	subs       []*subscription
	byServerID map[int64]*subscription
	pending    map[uint64]chan subscribeAck

	nextID atomic.Uint64
	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

var _ WSClient = (*WSClientImpl)(nil)

// NewWSClient dials endpoint and starts the read and ping loops.
func NewWSClient(ctx context.Context, endpoint string, cfg *WSConfig) (*WSClientImpl, error) {
	conf := DefaultWSConfig()
	if cfg != nil {
		conf = *cfg
	}
	log := conf.Logger
	if log == nil {
		log = logging.WithComponent("solana-ws")
	}

	c := &WSClientImpl{
		endpoint:   endpoint,
		cfg:        conf,
		log:        log,
		byServerID: make(map[int64]*subscription),
		pending:    make(map[uint64]chan subscribeAck),
		done:       make(chan struct{}),
	}
	if err := c.dial(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()
	return c, nil
}

func (c *WSClientImpl) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})

	c.connMu.Lock()
	if c.closed.Load() {
		c.connMu.Unlock()
		conn.Close()
		return ErrClientClosed
	}
	old := c.conn
	c.conn = conn
	c.connMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

func (c *WSClientImpl) currentConn() *websocket.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *WSClientImpl) write(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// SubscribeLogs issues logsSubscribe and waits for the subscription id.
func (c *WSClientImpl) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	id, err := c.subscribe(ctx, filter)
	if err != nil {
		return nil, err
	}

	sub := &subscription{
		filter:   filter,
		ch:       make(chan LogNotification, c.cfg.Buffer),
		serverID: id,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.byServerID[id] = sub
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"subscription": id, "mentions": filter.Mentions}).Info("logs subscription active")
	return sub.ch, nil
}

func (c *WSClientImpl) subscribe(ctx context.Context, filter LogsFilter) (int64, error) {
	reqID := c.nextID.Add(1)
	ack := make(chan subscribeAck, 1)

	c.mu.Lock()
	c.pending[reqID] = ack
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
	}()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			filter.params(),
			map[string]string{"commitment": c.cfg.Commitment},
		},
	}
	if err := c.write(req); err != nil {
		return 0, fmt.Errorf("write logsSubscribe: %w", err)
	}

	timer := time.NewTimer(c.cfg.SubscribeTimeout)
	defer timer.Stop()

	select {
	case a := <-ack:
		return a.id, a.err
	case <-timer.C:
		return 0, fmt.Errorf("logsSubscribe: no confirmation after %s", c.cfg.SubscribeTimeout)
	case <-c.done:
		return 0, ErrClientClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Close shuts the connection and closes every subscription channel.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	for _, sub := range c.subs {
		close(sub.ch)
	}
	c.subs = nil
	c.byServerID = map[int64]*subscription{}
	c.mu.Unlock()
	return nil
}

func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	for {
		conn := c.currentConn()
		if err := conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err == nil {
			_, msg, err := conn.ReadMessage()
			if err == nil {
				c.handleMessage(msg)
				continue
			}
			if c.closed.Load() {
				return
			}
			c.log.WithError(err).Warn("websocket read failed, reconnecting")
		}
		if !c.reconnect() {
			return
		}
	}
}

// reconnect redials until it succeeds or the client is closed.
func (c *WSClientImpl) reconnect() bool {
	delay := c.cfg.ReconnectDelay
	for attempt := 1; ; attempt++ {
		select {
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
		err := c.dial(ctx)
		cancel()
		if err == nil {
			c.log.WithField("attempt", attempt).Info("websocket reconnected")
			c.wg.Add(1)
			go c.resubscribeAll()
			return true
		}

		c.log.WithError(err).WithField("attempt", attempt).Warn("websocket redial failed")
		delay *= 2
		if delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
	}
}

// resubscribeAll runs outside the read loop since acks arrive through it.
func (c *WSClientImpl) resubscribeAll() {
	defer c.wg.Done()

	c.mu.Lock()
	subs := append([]*subscription(nil), c.subs...)
	c.mu.Unlock()

	for _, sub := range subs {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SubscribeTimeout)
		id, err := c.subscribe(ctx, sub.filter)
		cancel()
		if err != nil {
			c.log.WithError(err).WithField("mentions", sub.filter.Mentions).Error("resubscribe failed")
			continue
		}

		c.mu.Lock()
		delete(c.byServerID, sub.serverID)
		sub.serverID = id
		c.byServerID[id] = sub
		c.mu.Unlock()
	}
}

func (c *WSClientImpl) handleMessage(msg []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		c.log.WithError(err).Debug("ignoring undecodable websocket frame")
		return
	}

	if env.Method == "logsNotification" && env.Params != nil {
		c.deliver(env.Params)
		return
	}
	if env.ID == nil {
		return
	}

	c.mu.Lock()
	ack, ok := c.pending[*env.ID]
	c.mu.Unlock()
	if !ok {
		return
	}

	var a subscribeAck
	if env.Error != nil {
		a.err = env.Error
	} else if err := json.Unmarshal(env.Result, &a.id); err != nil {
		a.err = fmt.Errorf("decode subscription id: %w", err)
	}
	select {
	case ack <- a:
	default:
	}
}

func (c *WSClientImpl) deliver(p *wsNotificationParams) {
	c.mu.Lock()
	sub, ok := c.byServerID[p.Subscription]
	c.mu.Unlock()
	if !ok {
		return
	}

	n := LogNotification{
		Signature: p.Result.Value.Signature,
		Logs:      p.Result.Value.Logs,
		Err:       p.Result.Value.Err,
	}
	if p.Result.Context != nil {
		n.Slot = p.Result.Context.Slot
	}

	select {
	case sub.ch <- n:
	case <-c.done:
	}
}

func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout)); err != nil {
					c.log.WithError(err).Debug("ping failed")
				}
			}
			c.connMu.Unlock()
		}
	}
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsEnvelope struct {
	ID     *uint64               `json:"id"`
	Result json.RawMessage       `json:"result"`
	Error  *RPCError             `json:"error"`
	Method string                `json:"method"`
	Params *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64 `json:"subscription"`
	Result       struct {
		Context *struct {
			Slot int64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Signature string      `json:"signature"`
			Logs      []string    `json:"logs"`
			Err       interface{} `json:"err"`
		} `json:"value"`
	} `json:"result"`
}
