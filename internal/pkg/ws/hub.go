package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// 单次写超时，慢连接不阻塞其它标签页
const writeWait = 5 * time.Second

// Hub 按用户维护图表事件推送连接
type Hub struct {
	mu    sync.RWMutex
	conns map[int64]map[*Client]struct{}

	logger *zap.Logger
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn

	writeMu sync.Mutex
}

// Message 推送给编辑器的事件
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		conns:  make(map[int64]map[*Client]struct{}),
		logger: log,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set := h.conns[c.UserID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.conns[c.UserID] = set
	}
	set[c] = struct{}{}
	n := len(set)
	h.mu.Unlock()

	h.logger.Debug("editor connected", zap.Int64("user_id", c.UserID), zap.Int("tabs", n))
}

// Unregister 可重复调用
func (h *Hub) Unregister(c *Client) {
	if h.remove(c) {
		h.logger.Debug("editor disconnected", zap.Int64("user_id", c.UserID))
	}
}

func (h *Hub) remove(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[c.UserID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.conns, c.UserID)
	}
	return true
}

// SendToUser 推送到用户的每个编辑器标签页，写失败的连接被摘除
func (h *Hub) SendToUser(userID int64, msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	for _, c := range h.snapshot(userID) {
		if err := c.write(payload); err != nil {
			h.logger.Warn("drop editor connection",
				zap.Int64("user_id", userID),
				zap.String("event", msg.Type),
				zap.Error(err))
			h.remove(c)
			c.Conn.Close()
		}
	}
	return nil
}

func (h *Hub) snapshot(userID int64) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.conns[userID]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (c *Client) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.Conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.conns {
		n += len(set)
	}
	return n
}

// CloseAll 关闭全部连接，服务退出时调用
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[int64]map[*Client]struct{})
	h.mu.Unlock()

	for _, set := range conns {
		for c := range set {
			c.writeMu.Lock()
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			c.writeMu.Unlock()
			c.Conn.Close()
		}
	}
}
