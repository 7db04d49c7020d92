package internal

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/metricbundle"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/semconv"
)

// persistRequest representa una solicitud de persistencia async de mapeo.
type persistRequest struct {
	mapping *domain.SymbolMapping
}

// SymbolResolver resuelve símbolos externos (TradingView) a símbolos del broker.
//
// Responsabilidades:
//   - Caché en memoria: external_symbol → broker_symbol
//   - Warm-up lazy: carga todos los mapeos desde PostgreSQL en primer uso
//   - Fallback: normalización determinística cuando no hay mapeo explícito
//   - Persistencia async: canal con buffer y worker dedicado
//
// Resolución O(1) en hot-path; la BD solo se toca en warm-up y upserts.
type SymbolResolver struct {
	mu       sync.RWMutex
	cache    map[string]string
	loaded   bool
	repo     domain.SymbolRepository
	tel      *telemetry.Client
	metrics  *metricbundle.BaseMetrics
	persists chan persistRequest

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSymbolResolver crea un resolver de símbolos.
func NewSymbolResolver(ctx context.Context, repo domain.SymbolRepository, tel *telemetry.Client, persistBufferSize int) *SymbolResolver {
	if persistBufferSize <= 0 {
		persistBufferSize = 256
	}

	resolverCtx, cancel := context.WithCancel(ctx)

	return &SymbolResolver{
		cache:    make(map[string]string),
		repo:     repo,
		tel:      tel,
		metrics:  metricbundle.NewBaseMetrics(tel, "bridge", "symbol_mapping"),
		persists: make(chan persistRequest, persistBufferSize),
		ctx:      resolverCtx,
		cancel:   cancel,
	}
}

// Start inicia el worker de persistencia async.
func (r *SymbolResolver) Start() {
	r.wg.Add(1)
	go r.persistWorker()
}

// Stop detiene el resolver y espera al worker.
func (r *SymbolResolver) Stop() {
	r.cancel()
	close(r.persists)
	r.wg.Wait()
}

func (r *SymbolResolver) persistWorker() {
	defer r.wg.Done()

	for {
		select {
		case req, ok := <-r.persists:
			if !ok {
				return
			}

			done := r.metrics.StartDurationTimer(r.ctx,
				semconv.Metrics.Action.String("upsert"),
			)
			err := r.repo.Upsert(r.ctx, req.mapping)
			done()

			result := "success"
			if err != nil {
				result = "error"
				r.tel.Error(r.ctx, "Failed to persist symbol mapping", err,
					semconv.Bridge.ExternalSymbol.String(req.mapping.ExternalSymbol),
					semconv.Bridge.Symbol.String(req.mapping.BrokerSymbol),
				)
			}
			r.metrics.RecordResult(r.ctx,
				semconv.Metrics.Action.String("upsert"),
				semconv.Metrics.Result.String(result),
			)

		case <-r.ctx.Done():
			return
		}
	}
}

// warmUp carga todos los mapeos persistidos en el caché. Solo la primera
// llamada toca la BD; un fallo deja el resolver en modo solo-normalización
// y se reintenta en la siguiente resolución.
func (r *SymbolResolver) warmUp(ctx context.Context) {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return
	}

	mappings, err := r.repo.List(ctx)
	if err != nil {
		r.tel.Warn(ctx, "Failed to load symbol mappings, falling back to normalization",
			attribute.String("error", err.Error()),
		)
		return
	}

	r.mu.Lock()
	for _, m := range mappings {
		r.cache[m.ExternalSymbol] = m.BrokerSymbol
	}
	r.loaded = true
	r.mu.Unlock()

	r.tel.Info(ctx, "Symbol mappings loaded",
		attribute.Int("mappings_count", len(mappings)),
	)
}

// Resolve resuelve un símbolo externo al símbolo del broker.
//
// Orden de resolución:
//  1. Mapeo explícito en caché (cargado de PostgreSQL)
//  2. Normalización determinística (strip de prefijo de exchange,
//     separadores y sufijos decorativos)
//
// La normalización nunca falla, por lo que toda señal con símbolo no
// vacío obtiene un broker_symbol.
func (r *SymbolResolver) Resolve(ctx context.Context, externalSymbol string) string {
	r.warmUp(ctx)

	r.mu.RLock()
	broker, ok := r.cache[externalSymbol]
	r.mu.RUnlock()
	if ok {
		return broker
	}

	return domain.NormalizeSymbol(externalSymbol)
}

// UpsertMapping registra un mapeo explícito external → broker.
//
// Actualiza el caché de inmediato y encola la persistencia async
// (non-blocking con timeout corto; si el buffer está lleno el mapeo
// vive solo en memoria hasta el próximo upsert).
func (r *SymbolResolver) UpsertMapping(ctx context.Context, externalSymbol, brokerSymbol string) error {
	if externalSymbol == "" || brokerSymbol == "" {
		return domain.NewValidationError("symbol_mapping", externalSymbol, "external and broker symbols are required")
	}

	r.mu.Lock()
	r.cache[externalSymbol] = brokerSymbol
	r.mu.Unlock()

	mapping := &domain.SymbolMapping{
		ExternalSymbol: externalSymbol,
		BrokerSymbol:   brokerSymbol,
	}

	select {
	case r.persists <- persistRequest{mapping: mapping}:
		r.tel.Debug(ctx, "Symbol mapping upserted",
			semconv.Bridge.ExternalSymbol.String(externalSymbol),
			semconv.Bridge.Symbol.String(brokerSymbol),
		)

	case <-time.After(100 * time.Millisecond):
		r.tel.Warn(ctx, "Persist channel full, mapping kept in memory only",
			semconv.Bridge.ExternalSymbol.String(externalSymbol),
		)

	case <-r.ctx.Done():
		return r.ctx.Err()
	}

	return nil
}

// Seed registra los mapeos configurados al arranque del core.
//
// Alimenta el caché y encola la persistencia de cada par, de modo que los
// mapeos configurados sobreviven en PostgreSQL aunque la clave de config
// desaparezca. Un par inválido se reporta y no frena el resto.
func (r *SymbolResolver) Seed(ctx context.Context, defaults map[string]string) {
	for external, broker := range defaults {
		if err := r.UpsertMapping(ctx, external, broker); err != nil {
			r.tel.Warn(ctx, "Skipping invalid symbol mapping",
				semconv.Bridge.ExternalSymbol.String(external),
				attribute.String("error", err.Error()),
			)
		}
	}

	if len(defaults) > 0 {
		r.tel.Info(ctx, "Symbol mapping defaults seeded",
			attribute.Int("mappings_count", len(defaults)),
		)
	}
}

// Mappings retorna una copia del caché actual para diagnóstico.
func (r *SymbolResolver) Mappings() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.cache))
	for k, v := range r.cache {
		out[k] = v
	}
	return out
}
