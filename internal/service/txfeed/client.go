package txfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"SpendLens/internal/domain/models"
	drepo "SpendLens/internal/domain/repository"
	"SpendLens/pkg/util"
)

// Client implements a TransactionStream backed by the bank aggregator
// WebSocket feed.
type Client struct {
	token          string
	url            string
	accounts       []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// New creates a feed-backed TransactionStream for the given accounts.
func New(token, url string, accounts []string, reconnectDelay, pingInterval time.Duration) drepo.TransactionStream {
	return &Client{
		token:          token,
		url:            url,
		accounts:       accounts,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

func (c *Client) current() (*websocket.Conn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn, c.connected
}

// Connect dials the aggregator and marks the client ready.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, fmt.Sprintf("%s?token=%s", c.url, c.token), nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	log.Printf("txfeed: connected")
	return nil
}

// Subscribe registers interest in each configured account on the open
// connection.
func (c *Client) Subscribe(ctx context.Context) error {
	conn, ok := c.current()
	if conn == nil || !ok {
		return fmt.Errorf("feed not connected")
	}
	for _, account := range c.accounts {
		sub := map[string]string{"type": "subscribe", "account": account}
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("subscribe %s: %w", account, err)
		}
		log.Printf("txfeed: subscribed %s", account)
	}
	return nil
}

type feedMessage struct {
	Type string                      `json:"type"`
	Data []models.TransactionPayload `json:"data"`
}

// Read starts the ping and read loops and returns their output
// channels. The error channel delivers at most one error; both
// channels close when the read loop exits.
func (c *Client) Read(ctx context.Context) (<-chan *models.Transaction, <-chan error) {
	txs := make(chan *models.Transaction, 1024)
	errs := make(chan error, 1)
	go c.pingLoop(ctx)
	go c.readLoop(ctx, txs, errs)
	return txs, errs
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if conn, _ := c.current(); conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

func (c *Client) readLoop(ctx context.Context, txs chan<- *models.Transaction, errs chan<- error) {
	defer close(txs)
	defer close(errs)
	for ctx.Err() == nil {
		conn, _ := c.current()
		if conn == nil {
			errs <- fmt.Errorf("feed conn nil")
			return
		}
		_, frame, err := conn.ReadMessage()
		if err != nil {
			errs <- fmt.Errorf("feed read: %w", err)
			return
		}

		var m feedMessage
		if json.Unmarshal(frame, &m) != nil || m.Type != "transaction" {
			// non-transaction frames (acks, heartbeats) pass by
			continue
		}
		for i := range m.Data {
			t, ok := payloadToTransaction(&m.Data[i])
			if !ok {
				continue
			}
			select {
			case txs <- t:
			default:
				// drop on backpressure
			}
		}
	}
}

func payloadToTransaction(p *models.TransactionPayload) (*models.Transaction, bool) {
	if p.ID == "" {
		return nil, false
	}
	date, ok := util.ParseTime(p.Date)
	if !ok {
		return nil, false
	}
	direction := models.Direction(p.Direction)
	if direction != models.DirectionCredit {
		direction = models.DirectionDebit
	}
	amount := p.Amount
	if direction == models.DirectionDebit && amount > 0 {
		amount = -amount
	}
	return &models.Transaction{
		ID:           p.ID,
		Date:         date.UTC(),
		Description:  p.Description,
		Amount:       amount,
		Direction:    direction,
		Type:         models.ParseEconType(p.Type),
		CategoryID:   p.CategoryID,
		MerchantName: p.MerchantName,
	}, true
}

// Reconnect tears the connection down, waits out the backoff delay,
// then dials and resubscribes.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) IsConnected() bool {
	_, ok := c.current()
	return ok
}
