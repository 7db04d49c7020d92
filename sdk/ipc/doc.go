// Package ipc provee abstracciones para comunicación inter-proceso via Named Pipes.
//
// Este paquete implementa Named Pipes de Windows para comunicación
// bidireccional entre el agent (Go) y los Expert Advisors del terminal
// (MQL4/MQL5).
//
// # Arquitectura
//
// - El agent actúa como servidor (crea los Named Pipes)
// - Los EAs actúan como clientes (se conectan via DLL)
// - Protocolo: JSON line-delimited (cada mensaje termina con \n)
// - Buffering: lecturas eficientes con bufio.Scanner
// - Thread-safety: writes serializados con mutex
//
// # Uso Básico: Server (Agent)
//
// Crear un servidor de Named Pipe:
//
//	pipe, err := ipc.NewWindowsPipeServer("bridge_terminal_12345")
//	if err != nil {
//	    return err
//	}
//	defer pipe.Close()
//
//	// Esperar conexión del EA
//	if err := pipe.WaitForConnection(ctx); err != nil {
//	    return err
//	}
//
//	// Leer mensajes
//	reader := ipc.NewJSONReader(pipe)
//	for {
//	    msg, err := reader.ReadMessage()
//	    if err != nil {
//	        break
//	    }
//	    // Procesar mensaje...
//	}
//
// # Uso Básico: Writer
//
//	writer := ipc.NewJSONWriter(pipe)
//	msg := map[string]interface{}{
//	    "type": "execute_order",
//	    "payload": map[string]interface{}{
//	        "command_id": "abc123",
//	    },
//	}
//	if err := writer.WriteMessage(msg); err != nil {
//	    return err
//	}
//
// # Plataformas
//
// Los Named Pipes solo existen en Windows; en otras plataformas los
// constructores retornan error y el caller decide el fallback (el agent
// usa un broker simulado en desarrollo).
//
// # Características
//
// - Buffering para lecturas eficientes
// - Timeout configurable por operación
// - Line-delimited para parsing simple en MQL4/MQL5
// - Reconexión (responsabilidad del caller via DisconnectClient)
package ipc
