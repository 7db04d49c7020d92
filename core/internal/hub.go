package internal

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/metricbundle"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/semconv"
)

// ErrNotConnected indica que no hay canal de agent activo.
//
// Un push fallido por falta de canal no es un error del comando: el
// comando queda pending y se replay-ea cuando el agent reconecte.
var ErrNotConnected = errors.New("no agent channel connected")

// AgentHandler procesa los mensajes entrantes del agent.
//
// El hub es transporte puro: autentica, mantiene el canal vivo y entrega
// bytes decodificados; la semántica de reportes vive en el pipeline.
type AgentHandler interface {
	// HandleReport procesa un reporte de ejecución del agent. raw es el
	// frame tal como llegó por el canal, para auditoría del resultado.
	HandleReport(ctx context.Context, report *domain.ReportMessage, raw []byte)

	// HandleConnect se invoca tras aceptar un canal nuevo, antes de
	// procesar mensajes entrantes. Es el hook de replay.
	HandleConnect(ctx context.Context)
}

// Hub gestiona el canal duplex con el agent.
//
// Garantías:
//   - A lo sumo un canal activo: una conexión nueva autenticada reemplaza
//     a la anterior (la vieja se cierra).
//   - Autenticación por secreto compartido ANTES del upgrade WebSocket.
//   - Liveness: ping cada pingInterval; canal muerto si no llega tráfico
//     en deadAfter.
//   - Push sincrónico: Push retorna solo tras confirmar la escritura en
//     el socket, de modo que el caller puede transicionar a sent con
//     certeza de que el frame viajó.
type Hub struct {
	authSecret   string
	pingInterval time.Duration
	deadAfter    time.Duration

	handler AgentHandler
	tel     *telemetry.Client
	metrics *metricbundle.BridgeMetrics

	upgrader websocket.Upgrader

	mu      sync.Mutex
	current *agentChannel

	// lastContact es el último instante con tráfico del agent: accept,
	// mensaje, pong o desconexión. Cero si nunca conectó nadie.
	lastContact time.Time
}

// agentChannel es una conexión WebSocket aceptada con su write lock.
type agentChannel struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

func (c *agentChannel) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// writeMessage escribe un frame con deadline bajo el write lock.
//
// gorilla/websocket admite un solo escritor concurrente; el lock
// serializa pushes del pipeline, replay y pings del keepalive.
func (c *agentChannel) writeMessage(messageType int, data []byte, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// NewHub crea el gestor del canal de agent.
func NewHub(authSecret string, pingInterval, deadAfter time.Duration, handler AgentHandler, tel *telemetry.Client, metrics *metricbundle.BridgeMetrics) *Hub {
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	if deadAfter <= 0 {
		deadAfter = 90 * time.Second
	}

	return &Hub{
		authSecret:   authSecret,
		pingInterval: pingInterval,
		deadAfter:    deadAfter,
		handler:      handler,
		tel:          tel,
		metrics:      metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// El agent no es un browser; no hay origin que validar
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS es el handler HTTP del endpoint /ws.
//
// Autentica por Authorization: Bearer <secret> (o ?token= como fallback
// para clientes que no pueden setear headers) y recién entonces hace el
// upgrade. Un secreto inválido responde 401 sin upgrade.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.authorized(r) {
		h.metrics.RecordChannelRejected(ctx)
		h.tel.Warn(ctx, "Channel rejected: invalid shared secret",
			attribute.String("remote_addr", r.RemoteAddr),
		)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade ya respondió el error HTTP
		h.tel.Error(ctx, "WebSocket upgrade failed", err,
			attribute.String("remote_addr", r.RemoteAddr),
		)
		return
	}

	ch := &agentChannel{
		conn: conn,
		done: make(chan struct{}),
	}

	h.mu.Lock()
	prev := h.current
	h.current = ch
	h.lastContact = time.Now()
	h.mu.Unlock()

	if prev != nil {
		// La conexión nueva manda; la vieja se cierra sin ceremonia
		prev.close()
		h.metrics.RecordChannelDisconnected(context.Background(),
			semconv.Bridge.Reason.String("superseded"),
		)
		h.tel.Info(context.Background(), "Previous channel superseded")
	}

	h.metrics.RecordChannelConnected(context.Background())
	h.tel.Info(context.Background(), "Agent channel connected",
		attribute.String("remote_addr", r.RemoteAddr),
	)

	go h.keepalive(ch)

	// Replay antes de procesar tráfico entrante
	h.handler.HandleConnect(context.Background())

	h.readLoop(ch)
}

// authorized valida el secreto compartido con comparación constant-time.
func (h *Hub) authorized(r *http.Request) bool {
	secret := ""
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		secret = strings.TrimPrefix(auth, "Bearer ")
	} else {
		secret = r.URL.Query().Get("token")
	}

	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(h.authSecret)) == 1
}

// keepalive envía pings periódicos hasta que el canal muere.
func (h *Hub) keepalive(ch *agentChannel) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(h.pingInterval)
			if err := ch.writeMessage(websocket.PingMessage, nil, deadline); err != nil {
				h.dropChannel(ch, "ping_failed")
				return
			}

		case <-ch.done:
			return
		}
	}
}

// readLoop consume mensajes del agent hasta que el canal muere.
//
// Cada mensaje o pong recibido extiende el deadline de lectura; si no
// llega tráfico en deadAfter la lectura falla y el canal se descarta.
func (h *Hub) readLoop(ch *agentChannel) {
	ctx := context.Background()

	refresh := func() {
		now := time.Now()
		_ = ch.conn.SetReadDeadline(now.Add(h.deadAfter))

		h.mu.Lock()
		h.lastContact = now
		h.mu.Unlock()
	}
	refresh()
	ch.conn.SetPongHandler(func(string) error {
		refresh()
		return nil
	})

	for {
		_, data, err := ch.conn.ReadMessage()
		if err != nil {
			h.dropChannel(ch, "read_failed")
			return
		}
		refresh()

		msg, err := domain.DecodeAgentMessage(data)
		if err != nil {
			h.tel.Warn(ctx, "Malformed agent message ignored",
				attribute.String("error", err.Error()),
			)
			continue
		}

		if msg.Heartbeat {
			h.metrics.RecordHeartbeatReceived(ctx)
			continue
		}

		h.handler.HandleReport(ctx, msg.Report, data)
	}
}

// dropChannel cierra un canal y lo desregistra si sigue siendo el actual.
func (h *Hub) dropChannel(ch *agentChannel, reason string) {
	ch.close()

	h.mu.Lock()
	if h.current == ch {
		h.current = nil
	}
	h.lastContact = time.Now()
	h.mu.Unlock()

	h.metrics.RecordChannelDisconnected(context.Background(),
		semconv.Bridge.Reason.String(reason),
	)
	h.tel.Info(context.Background(), "Agent channel disconnected",
		semconv.Bridge.Reason.String(reason),
	)
}

// Push serializa un comando y lo escribe en el canal actual.
//
// Retorna ErrNotConnected si no hay canal; cualquier error de escritura
// descarta el canal (la conexión ya no es confiable).
func (h *Hub) Push(ctx context.Context, cmd *domain.Command) error {
	h.mu.Lock()
	ch := h.current
	h.mu.Unlock()

	if ch == nil {
		return ErrNotConnected
	}

	data, err := domain.CommandToWire(cmd).Encode()
	if err != nil {
		return err
	}

	deadline := time.Now().Add(10 * time.Second)
	if err := ch.writeMessage(websocket.TextMessage, data, deadline); err != nil {
		h.dropChannel(ch, "write_failed")
		return err
	}

	return nil
}

// Connected indica si hay un canal de agent activo.
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current != nil
}

// LastContact retorna el último instante con tráfico del agent.
// Zero value si ningún agent conectó desde el arranque.
func (h *Hub) LastContact() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastContact
}

// Close cierra el canal actual si existe.
func (h *Hub) Close() {
	h.mu.Lock()
	ch := h.current
	h.current = nil
	if ch != nil {
		h.lastContact = time.Now()
	}
	h.mu.Unlock()

	if ch != nil {
		ch.close()
	}
}
