// Package utils provee utilidades comunes para el SDK del bridge.
//
// # Utilidades Incluidas
//
// - UUID: Generación de UUIDv7 ordenables por tiempo
// - Timestamp: Helpers para timestamps Unix en ms/μs
// - JSON: Parsing, validación y extracción tolerante de campos
//
// # Uso de UUID
//
// Generación de identificadores únicos ordenables:
//
//	id := utils.GenerateUUIDv7()
//	// => "01HKQV8Y-9GJ3-7ABC-8DEF-123456789ABC"
//
// # Uso de Timestamp
//
// Medición de latencia y timestamps:
//
//	start := utils.NowUnixMilli()
//	// ... operación ...
//	elapsed := utils.ElapsedMs(start)
//
// # Uso de JSON
//
// Parsing y extracción de campos dinámicos:
//
//	m, err := utils.JSONToMap(data)
//	symbol := utils.ExtractString(m, "ticker")
//	stop := utils.ExtractFloat64(m, "stopLoss")
//
// # Integración
//
// Este paquete es usado por:
//   - sdk/domain: transformers de alertas webhook
//   - sdk/ipc: mensajes JSON line-delimited hacia el terminal
//   - Core: pipeline de señales y métricas
//   - Agent: ejecución de comandos y ledger
package utils
