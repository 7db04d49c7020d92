// Package domain provee los modelos y la lógica de negocio del bridge:
// señales, comandos y su máquina de estados, resultados de ejecución,
// deduplicación, sizing por riesgo y el protocolo de mensajes del canal.
//
// El paquete no tiene dependencias de transporte ni de persistencia; las
// interfaces de repositorio se implementan en core/internal/repository y
// los mensajes wire se serializan con encoding/json estándar.
package domain
