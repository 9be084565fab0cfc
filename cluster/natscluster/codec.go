package natscluster

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/junioryono/unify"
)

// envelope is the wire form of a broadcast command.
type envelope struct {
	Command string    `json:"command"`
	Params  []string  `json:"params,omitempty"`
	Origin  string    `json:"origin"`
	SentAt  time.Time `json:"sentAt"`
}

func encodeCommand(cmd unify.ClusterCommand, now time.Time) ([]byte, error) {
	if cmd.Command == "" {
		return nil, fmt.Errorf("encode cluster command: empty command")
	}
	return json.Marshal(envelope{Command: cmd.Command, Params: cmd.Params, Origin: cmd.Origin, SentAt: now.UTC()})
}

func decodeCommand(data []byte) (unify.ClusterCommand, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return unify.ClusterCommand{}, fmt.Errorf("decode cluster command: %w", err)
	}
	if env.Command == "" {
		return unify.ClusterCommand{}, fmt.Errorf("decode cluster command: missing command")
	}
	return unify.ClusterCommand{Command: env.Command, Params: env.Params, Origin: env.Origin}, nil
}

// lockKey maps a lock name onto the key alphabet of a JetStream KV bucket.
func lockKey(lock string) string {
	var b strings.Builder
	b.WriteString("lock.")
	for _, r := range lock {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '=', r == '/':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if lock == "" {
		b.WriteByte('_')
	}
	return b.String()
}
