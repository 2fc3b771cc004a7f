package agents

import "errors"

// ErrAgentNotFound indicates no agent is configured for a phone number id.
var ErrAgentNotFound = errors.New("agents: agent not found")
