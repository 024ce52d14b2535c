package agents

import "fmt"

// Agent identifies one of the personas the call can be speaking as.
type Agent string

const (
	Router Agent = "router"
	Items  Agent = "items"
	Pickup Agent = "pickup"
)

// Tool names as exposed to the reasoning engine.
const (
	ToolRouteIntent     = "route_intent"
	ToolSearchItems     = "search_items"
	ToolSearchPickup    = "search_pickup_locations"
	ToolStandardAnswer  = "standard_answer"
	ToolHandoffToRouter = "handoff_to_router"
)

// Parse validates a free-form agent name coming off the wire.
func Parse(s string) (Agent, bool) {
	switch Agent(s) {
	case Router, Items, Pickup:
		return Agent(s), true
	}
	return "", false
}

// Handoff describes a mid-call persona transition.
type Handoff struct {
	FromAgent    Agent
	ToAgent      Agent
	QuestionType string
	Question     string
}

func (h Handoff) Validate() error {
	if _, ok := Parse(string(h.ToAgent)); !ok {
		return fmt.Errorf("unknown target agent %q", h.ToAgent)
	}
	return nil
}

// ToolDef is a function tool in the engine's manifest format.
type ToolDef struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func fn(name, desc string, props map[string]any, required []string) ToolDef {
	if required == nil {
		required = []string{}
	}
	return ToolDef{
		Type:        "function",
		Name:        name,
		Description: desc,
		Parameters: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

var toolsByAgent = map[Agent][]ToolDef{
	Router: {
		fn(ToolRouteIntent,
			"Classify what the caller wants and route to the agent that handles it. Call this for every substantive caller question.",
			map[string]any{
				"question": map[string]any{"type": "string", "description": "The caller's question, cleaned up"},
			}, []string{"question"}),
		fn(ToolStandardAnswer,
			"Fetch the store's standard answer for a common question such as hours or address.",
			map[string]any{
				"key":       map[string]any{"type": "string", "description": "Answer key, e.g. store_hours"},
				"variables": map[string]any{"type": "object", "description": "Substitution variables for the answer template"},
			}, []string{"key"}),
	},
	Items: {
		fn(ToolSearchItems,
			"Search the store catalog for items matching the caller's request.",
			map[string]any{
				"query": map[string]any{"type": "string", "description": "What the caller is looking for"},
			}, []string{"query"}),
		fn(ToolHandoffToRouter,
			"Hand the call back to the main assistant when the question is not about items.",
			map[string]any{
				"question": map[string]any{"type": "string", "description": "The caller's question, cleaned up"},
			}, nil),
	},
	Pickup: {
		fn(ToolSearchPickup,
			"Search pickup locations by area or address.",
			map[string]any{
				"query": map[string]any{"type": "string", "description": "Area, neighborhood or address"},
			}, []string{"query"}),
		fn(ToolHandoffToRouter,
			"Hand the call back to the main assistant when the question is not about pickup.",
			map[string]any{
				"question": map[string]any{"type": "string", "description": "The caller's question, cleaned up"},
			}, nil),
	},
}

// Tools returns the fixed toolset for an agent.
func Tools(a Agent) []ToolDef {
	return toolsByAgent[a]
}

var fallbackInstructions = map[Agent]string{
	Router: "You are the phone assistant for a grocery store. Greet briefly, listen to the caller, " +
		"and use route_intent to classify every substantive question so the right specialist answers it. " +
		"Use standard_answer for common questions like hours or address. Keep answers short and spoken-friendly.",
	Items: "You are the item specialist for a grocery store. Use search_items to look up products the " +
		"caller asks about and read back the closest matches with prices when available. If the caller asks " +
		"about anything other than items, call handoff_to_router.",
	Pickup: "You are the pickup specialist for a grocery store. Use search_pickup_locations to find " +
		"pickup points near the caller and read back names and addresses. If the caller asks about anything " +
		"other than pickup, call handoff_to_router.",
}

// FallbackInstructions returns the built-in system prompt for an agent, used
// when the prompt store has nothing for it.
func FallbackInstructions(a Agent) string {
	return fallbackInstructions[a]
}
