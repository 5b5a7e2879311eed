package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pollarena/protocol"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ClientConn 推送连接：feed 协程产出快照，writePump 写出
type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, 16),
		done: make(chan struct{}),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃最旧的一条）
func (c *ClientConn) Enqueue(b []byte) {
	for {
		select {
		case c.send <- b:
			return
		default:
		}
		// 队列满：丢掉最旧的，快照是全量的，只有最新一条有意义
		select {
		case <-c.send:
		default:
		}
	}
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 推送通道只读控制帧；读出错即视为断开
func (c *ClientConn) readPump() {
	defer close(c.done)
	c.ws.SetReadLimit(1 << 10)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

// feed 作为一个反复重新挂起的观察者：每次释放都推送一帧全量快照
func (c *ClientConn) feed(hub *Hub) {
	defer close(c.send)
	positions, since := hub.Snapshot()
	c.push(positions)
	for {
		o := hub.WaitSince(since)
		select {
		case u := <-o.C:
			if u.TimedOut {
				continue
			}
			since = u.Version
			c.push(u.Positions)
		case <-c.done:
			return
		}
	}
}

func (c *ClientConn) push(positions []protocol.Position) {
	if positions == nil {
		positions = []protocol.Position{}
	}
	b, err := json.Marshal(positions)
	if err != nil {
		Log.Errorf("ws marshal: %v", err)
		return
	}
	c.Enqueue(b)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源
		return true
	},
}

// HandleWS GET /ws/positions  升级为 WebSocket，推送每次变更后的位置数组
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}
	c := NewClientConn(ws)
	s.Hub.Metrics.AddPushClients(1)
	Log.Infof("push client connected: %s", r.RemoteAddr)

	go c.writePump()
	go c.feed(s.Hub)
	go func() {
		c.readPump()
		s.Hub.Metrics.AddPushClients(-1)
		Log.Infof("push client gone: %s", r.RemoteAddr)
	}()
}
