package utils

import (
	"time"
)

// NowUnixMilli retorna el timestamp actual en milisegundos desde Unix epoch.
//
// Todos los timestamps del pipeline (señales, comandos, reportes) se
// expresan en Unix ms.
//
// Example:
//
//	ts := utils.NowUnixMilli()
//	// => 1698345601234
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// NowUnixMicro retorna el timestamp actual en microsegundos desde Unix epoch.
//
// Útil para mediciones de latencia de alta precisión.
func NowUnixMicro() int64 {
	return time.Now().UnixMicro()
}

// UnixMilliToTime convierte un timestamp Unix en milisegundos a time.Time.
func UnixMilliToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// TimeToUnixMilli convierte un time.Time a timestamp Unix en milisegundos.
func TimeToUnixMilli(t time.Time) int64 {
	return t.UnixMilli()
}

// ElapsedMs calcula los milisegundos transcurridos desde un timestamp dado.
//
// Example:
//
//	start := utils.NowUnixMilli()
//	// ... operación ...
//	elapsed := utils.ElapsedMs(start)
//	// => 45 (ms)
func ElapsedMs(startMs int64) int64 {
	return NowUnixMilli() - startMs
}

// ElapsedMsSince calcula los milisegundos transcurridos desde un time.Time dado.
func ElapsedMsSince(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

// LatencyMarks acumula los timestamps de cada salto del funnel
// señal → comando → envío → reporte. Todos en Unix ms; cero = no marcado.
type LatencyMarks struct {
	T0SignalRecvMs   int64 // Core recibe la señal del webhook
	T1CommandMs      int64 // Comando creado en el store
	T2SentMs         int64 // Comando empujado por el canal
	T3ReportRecvMs   int64 // Core recibe el reporte del agent
	T4BrokerFilledMs int64 // Timestamp de fill reportado por el broker
}

// LatencyE2E calcula la latencia total señal → fill (t4 - t0) en ms.
func (lm *LatencyMarks) LatencyE2E() int64 {
	if lm.T4BrokerFilledMs == 0 || lm.T0SignalRecvMs == 0 {
		return 0
	}
	return lm.T4BrokerFilledMs - lm.T0SignalRecvMs
}

// LatencyIngest calcula señal → comando (t1 - t0).
func (lm *LatencyMarks) LatencyIngest() int64 {
	if lm.T1CommandMs == 0 || lm.T0SignalRecvMs == 0 {
		return 0
	}
	return lm.T1CommandMs - lm.T0SignalRecvMs
}

// LatencyDelivery calcula comando → envío (t2 - t1). Incluye el tiempo
// en cola cuando no hay canal conectado.
func (lm *LatencyMarks) LatencyDelivery() int64 {
	if lm.T2SentMs == 0 || lm.T1CommandMs == 0 {
		return 0
	}
	return lm.T2SentMs - lm.T1CommandMs
}

// LatencyAck calcula envío → reporte (t3 - t2).
func (lm *LatencyMarks) LatencyAck() int64 {
	if lm.T3ReportRecvMs == 0 || lm.T2SentMs == 0 {
		return 0
	}
	return lm.T3ReportRecvMs - lm.T2SentMs
}
