// Package gateway is the HTTP sidecar next to the TCP listener. It exposes a
// websocket bridge for clients that cannot open a raw socket (each websocket
// text frame maps to one protocol line), prometheus metrics, and a health
// endpoint.
package gateway

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Gateway struct {
	addr       string
	serverAddr string // TCP protocol listener the bridge dials
	logger     *slog.Logger
}

func New(addr, serverAddr string, logger *slog.Logger) *Gateway {
	return &Gateway{addr: addr, serverAddr: serverAddr, logger: logger}
}

func (g *Gateway) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", g.bridgeWebSocket)
	return r
}

func (g *Gateway) Run() error {
	g.logger.Info("gateway listening", "addr", g.addr)
	return g.Router().Run(g.addr)
}

// bridgeWebSocket pairs one websocket with one TCP connection to the
// protocol listener. Text frames become newline-terminated protocol lines
// and vice versa; closing either side tears down both.
func (g *Gateway) bridgeWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	tcp, err := net.Dial("tcp", g.serverAddr)
	if err != nil {
		g.logger.Error("bridge dial failed", "addr", g.serverAddr, "error", err)
		ws.WriteMessage(websocket.CloseMessage, []byte{})
		return
	}
	defer tcp.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(tcp)
		scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
		for scanner.Scan() {
			if err := ws.WriteMessage(websocket.TextMessage, scanner.Bytes()); err != nil {
				return
			}
		}
	}()

	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			break
		}
		frame = append(frame, '\n')
		if _, err := tcp.Write(frame); err != nil {
			break
		}
	}
	tcp.Close()
	<-done
}
