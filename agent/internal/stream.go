package internal

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/semconv"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamDialTimeout  = 10 * time.Second

	// Capacidad del canal de comandos entrantes. El replay tras una
	// reconexión puede traer varios comandos de golpe.
	streamCommandBuffer = 64
)

// Stream es la conexión WebSocket del agent hacia el core.
//
// El core empuja comandos por aquí; el agent responde con reportes y
// heartbeats. La reconexión no es automática: el loop principal del
// agent decide cuándo reconectar (liveness + backoff), este tipo solo
// expone el estado de la conexión.
type Stream struct {
	url       string
	secret    string
	deadAfter time.Duration
	tel       *telemetry.Client

	commands chan *domain.CommandMessage

	mu       sync.Mutex
	conn     *websocket.Conn
	lastRecv time.Time
	readDone chan struct{}
}

// NewStream crea el stream hacia el core. No conecta.
func NewStream(cfg *Config, tel *telemetry.Client) *Stream {
	return &Stream{
		url:       cfg.CoreURL,
		secret:    cfg.AuthSecret,
		deadAfter: cfg.DeadAfter,
		tel:       tel,
		commands:  make(chan *domain.CommandMessage, streamCommandBuffer),
	}
}

// Commands retorna el canal de comandos entrantes del core.
func (s *Stream) Commands() <-chan *domain.CommandMessage {
	return s.commands
}

// Connect abre la conexión WebSocket y arranca el loop de lectura.
//
// Si ya hay una conexión viva la descarta primero: el core de todas
// formas reemplaza el canal anterior al aceptar el nuevo.
func (s *Stream) Connect(ctx context.Context) error {
	s.Disconnect()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.secret)

	dialer := websocket.Dialer{HandshakeTimeout: streamDialTimeout}
	conn, resp, err := dialer.DialContext(ctx, s.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial core: %w (http %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial core: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})
	conn.SetPingHandler(func(appData string) error {
		s.touch()
		deadline := time.Now().Add(streamWriteTimeout)
		return conn.WriteControl(websocket.PongMessage, []byte(appData), deadline)
	})

	done := make(chan struct{})

	s.mu.Lock()
	s.conn = conn
	s.lastRecv = time.Now()
	s.readDone = done
	s.mu.Unlock()

	go s.readLoop(ctx, conn, done)

	s.tel.Info(ctx, "Connected to core", attribute.String("url", s.url))
	return nil
}

// Connected indica si hay conexión establecida.
func (s *Stream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Alive indica si la conexión sigue dando señales de vida.
//
// Falso si no hay conexión o si el core lleva más de deadAfter sin
// enviar nada (ni pings ni comandos): el loop del agent debe reconectar.
func (s *Stream) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return false
	}
	return time.Since(s.lastRecv) < s.deadAfter
}

// SendReport envía el reporte de ejecución de un comando.
func (s *Stream) SendReport(ctx context.Context, report *domain.ReportMessage) error {
	data, err := report.Encode()
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return s.write(data)
}

// SendHeartbeat envía el latido periódico al core.
func (s *Stream) SendHeartbeat(ctx context.Context) error {
	data, err := domain.NewHeartbeat().Encode()
	if err != nil {
		return fmt.Errorf("encode heartbeat: %w", err)
	}
	return s.write(data)
}

// Disconnect cierra la conexión actual si existe y espera a que el
// loop de lectura termine.
func (s *Stream) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	done := s.readDone
	s.conn = nil
	s.readDone = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}
}

func (s *Stream) write(data []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected to core")
	}

	conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.dropConn(conn)
		return fmt.Errorf("write to core: %w", err)
	}
	return nil
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.dropConn(conn)
			s.tel.Warn(ctx, "Core connection lost",
				attribute.String("error", err.Error()),
			)
			return
		}
		s.touch()

		cmd, err := domain.DecodeCommandMessage(data)
		if err != nil {
			// Mensaje malformado: ignorar sin tumbar la conexión
			s.tel.Warn(ctx, "Malformed message from core",
				attribute.String("error", err.Error()),
			)
			continue
		}

		select {
		case s.commands <- cmd:
		default:
			// Canal lleno: el loop del agent está atascado. Mejor soltar
			// la conexión y dejar que el core reintente vía replay.
			s.tel.Error(ctx, "Command buffer full, dropping connection", nil,
				semconv.Bridge.CommandID.String(cmd.ID),
			)
			s.dropConn(conn)
			return
		}
	}
}

func (s *Stream) touch() {
	s.mu.Lock()
	s.lastRecv = time.Now()
	s.mu.Unlock()
}

// dropConn deregistra la conexión solo si sigue siendo la actual.
func (s *Stream) dropConn(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
		s.readDone = nil
	}
	s.mu.Unlock()
	conn.Close()
}
