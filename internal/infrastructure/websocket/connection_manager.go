package websocket

import (
	"bidding-app/internal/domain"
	"bidding-app/pkg/logger"
	"sync"
)

type ConnectionManager struct {
	connections map[string]domain.HubConnection // connectionID -> connection
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]domain.HubConnection),
		log:         log,
	}
}

func (cm *ConnectionManager) RegisterConnection(conn domain.HubConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.connections[conn.ConnectionID()] = conn

	cm.log.Info("Connection registered", "connection_id", conn.ConnectionID(), "connections", len(cm.connections))
	return nil
}

func (cm *ConnectionManager) UnregisterConnection(connectionID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	delete(cm.connections, connectionID)

	cm.log.Info("Connection unregistered", "connection_id", connectionID, "connections", len(cm.connections))
	return nil
}

func (cm *ConnectionManager) Connections() []domain.HubConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	connections := make([]domain.HubConnection, 0, len(cm.connections))
	for _, conn := range cm.connections {
		connections = append(connections, conn)
	}

	return connections
}

func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// Broadcast sends an already framed payload to every registered connection.
// A failing connection is logged and skipped.
func (cm *ConnectionManager) Broadcast(payload []byte) error {
	connections := cm.Connections()
	cm.log.Debug("Broadcasting to hub", "connections", len(connections), "bytes", len(payload))

	for _, conn := range connections {
		if err := conn.Send(payload); err != nil {
			cm.log.Error("Failed to send message", "connection_id", conn.ConnectionID(), "error", err)
			// Continue to other connections
		}
	}

	return nil
}

func (cm *ConnectionManager) CloseAll() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for connectionID, conn := range cm.connections {
		if err := conn.Close(); err != nil {
			cm.log.Error("Failed to close connection", "connection_id", connectionID, "error", err)
		} else {
			cm.log.Info("Closed connection", "connection_id", connectionID)
		}
	}
	cm.connections = make(map[string]domain.HubConnection)

	return nil
}
