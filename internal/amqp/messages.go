package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GoalSyncMessage asks the worker to mirror one goal. It carries only the
// goal ID and operation; the worker reads the goal from the database.
type GoalSyncMessage struct {
	GoalID    uuid.UUID `json:"goal_id"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewGoalSyncMessage(goalID uuid.UUID, operation string) *GoalSyncMessage {
	return &GoalSyncMessage{
		GoalID:    goalID,
		Operation: operation,
		Timestamp: time.Now().UTC(),
	}
}

func (m *GoalSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// GoalSyncMessageFromJSON decodes a message and rejects one without a goal.
func GoalSyncMessageFromJSON(data []byte) (*GoalSyncMessage, error) {
	var msg GoalSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.GoalID == uuid.Nil {
		return nil, fmt.Errorf("message has no goal id")
	}
	return &msg, nil
}
