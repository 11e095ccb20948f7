// Package llm provides the model transport shared by the LLM-backed
// collaborators.
//
// Provider is the single abstraction the collaborators depend on. The
// OpenAIProvider speaks the OpenAI-compatible chat completions protocol, so
// it works with OpenAI, OpenRouter and local servers such as Ollama.
// Scripted replays canned answers for tests and offline runs.
//
//	p, err := llm.NewOpenAIProvider(llm.Config{Model: "gpt-4o", APIKey: key})
//	resp, err := p.Complete(ctx, []llm.Message{
//	    llm.SystemMessage("You are a BIM query assistant."),
//	    llm.UserMessage(question),
//	}, llm.WithTemperature(0))
//
// ExtractJSON pulls the JSON object out of an answer that may be wrapped in
// markdown fences or surrounded by prose. TokenTracker attributes usage to
// the collaborator that issued each request.
package llm
