package ws

import (
	"log"
	"sync"
	"time"

	"durak_webapp/internal/game"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
)

type Client struct {
	UserID    int64  // транспортный идентификатор места
	AccountID *int64 // nil — гость
	Name      string
	Spectator bool

	// параметры подключения: join — войти в существующий матч,
	// create — открыть новый стол
	JoinID    string
	CreateCfg *game.Config
	Bet       int64 // зарезервированная ставка, для возврата при срыве

	Conn *websocket.Conn
	Send chan []byte

	Hub       *Hub
	Room      *Room
	Ready     chan struct{}
	Done      chan struct{}
	pendingMu sync.Mutex
	pending   [][]byte
}

func NewClient(userID int64, accountID *int64, name string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID:    userID,
		AccountID: accountID,
		Name:      name,
		Conn:      conn,
		Send:      make(chan []byte, 1024),
		Hub:       hub,
		Ready:     make(chan struct{}),
		Done:      make(chan struct{}),
	}
}

func (c *Client) Run() {
	// запускаем writer первым, чтобы регистрация комнаты могла наблюдать готовность
	go c.writePump()
	// сигнализируем, что writePump запущен
	close(c.Ready)

	// явный хендшейк готовности для фронта
	readyMsg := []byte(`{"type":"ready"}`)
	select {
	case c.Send <- readyMsg:
	case <-time.After(500 * time.Millisecond):
		log.Printf("Client.Run: таймаут постановки в очередь ready для пользователя=%d", c.UserID)
	}

	// запускаем readPump рано, чтобы не пропустить сообщения во время назначения
	go c.readPump()

	// назначаем комнату (создание / вход / реконнект)
	c.Room = c.Hub.AssignClient(c)

	if c.Room == nil {
		log.Printf("Client.Run: не удалось назначить комнату для пользователя=%d", c.UserID)
		c.Conn.Close()
		return
	}

	log.Printf("Client.Run: пользователь=%d назначен в комнату=%s", c.UserID, c.Room.ID)

	<-c.Done
}

// read
func (c *Client) readPump() {
	defer func() {
		c.disconnect()
		close(c.Done)
	}()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			log.Println("ошибка чтения:", err)
			break
		}
		if c.Room != nil {
			c.Room.HandleMessage(c, msg)
		} else {
			// буферизуем сообщение до назначения комнаты
			c.pendingMu.Lock()
			c.pending = append(c.pending, append([]byte(nil), msg...))
			c.pendingMu.Unlock()
		}
	}
}

// write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("Client.writePump: пользователь=%d ошибка записи: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// disconnect
func (c *Client) disconnect() {
	if c.Room != nil {
		c.Hub.OnDisconnect(c)
	}
	_ = c.Conn.Close()
}

// drainPending возвращает сообщения, накопленные до назначения комнаты
func (c *Client) drainPending() [][]byte {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	pending := c.pending
	c.pending = nil
	return pending
}
