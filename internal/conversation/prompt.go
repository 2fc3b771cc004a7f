package conversation

import (
	"fmt"
	"strings"

	"github.com/nomadev-io/whatsapp-autopilot/internal/agents"
)

const behaviorInstructions = `Instrucciones:
- Responde de forma natural y conversacional
- Se conciso pero completo
- Muestra empatia y profesionalismo
- Si no sabes algo, ofrece poner al cliente en contacto con una persona`

// BuildSystemPrompt assembles the system prompt for an agent's reply, in
// order: the configured prompt (or a generic fallback naming the agent), the
// personality block, the agent's extra context, the contact's name, and the
// fixed behavior instructions.
func BuildSystemPrompt(agent *agents.Agent, contactName string) string {
	var b strings.Builder

	if prompt := strings.TrimSpace(agent.SystemPrompt); prompt != "" {
		b.WriteString(prompt)
	} else {
		fmt.Fprintf(&b, "Eres %s, un asistente virtual que atiende clientes por WhatsApp.", agent.Name)
	}

	if p := agent.Personality; !p.Empty() {
		b.WriteString("\n\nPersonalidad:")
		if p.Tone != "" {
			fmt.Fprintf(&b, "\n- Tono: %s", p.Tone)
		}
		if p.Language != "" {
			fmt.Fprintf(&b, "\n- Idioma: %s", p.Language)
		}
		if p.Style != "" {
			fmt.Fprintf(&b, "\n- Estilo: %s", p.Style)
		}
	}

	if ctx := strings.TrimSpace(agent.Context); ctx != "" {
		fmt.Fprintf(&b, "\n\nContexto adicional:\n%s", ctx)
	}

	if contactName != "" {
		fmt.Fprintf(&b, "\n\nEstas hablando con %s.", contactName)
	}

	b.WriteString("\n\n")
	b.WriteString(behaviorInstructions)
	return b.String()
}
