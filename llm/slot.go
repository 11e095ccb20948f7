package llm

import "fmt"

// Slot names one LLM-backed collaborator. Each slot can run on its own
// model, typically a stronger one for evaluation.
type Slot string

// Collaborator slots.
const (
	SlotGenerate  Slot = "generate_query"
	SlotEvaluate  Slot = "evaluate"
	SlotRepair    Slot = "repair"
	SlotSummarize Slot = "summarize"
)

// Slots returns every slot in workflow order.
func Slots() []Slot {
	return []Slot{SlotGenerate, SlotEvaluate, SlotRepair, SlotSummarize}
}

// IsValid reports whether s is a known slot.
func (s Slot) IsValid() bool {
	switch s {
	case SlotGenerate, SlotEvaluate, SlotRepair, SlotSummarize:
		return true
	default:
		return false
	}
}

// SlotOverride replaces selected provider settings for one slot. Zero
// fields keep the base configuration.
type SlotOverride struct {
	Model       string   `yaml:"model" json:"model,omitempty"`
	Temperature *float64 `yaml:"temperature" json:"temperature,omitempty"`
	MaxTokens   int      `yaml:"max_tokens" json:"max_tokens,omitempty"`
	Timeout     string   `yaml:"timeout" json:"timeout,omitempty"`
}

// ForSlot returns the configuration to use for slot s.
func (c Config) ForSlot(s Slot) Config {
	o, ok := c.Slots[string(s)]
	out := c
	out.Slots = nil
	if !ok {
		return out
	}
	if o.Model != "" {
		out.Model = o.Model
	}
	if o.Temperature != nil {
		out.Temperature = *o.Temperature
	}
	if o.MaxTokens > 0 {
		out.MaxTokens = o.MaxTokens
	}
	if o.Timeout != "" {
		out.Timeout = o.Timeout
	}
	return out
}

// ValidateSlots rejects overrides for unknown slot names.
func (c Config) ValidateSlots() error {
	for name := range c.Slots {
		if !Slot(name).IsValid() {
			return fmt.Errorf("llm: unknown slot %q", name)
		}
	}
	return nil
}
