// Package bimq answers natural-language questions about a building model.
//
// A building model is a set of typed elements (rooms, walls, doors, slabs)
// with bounding boxes, properties and declared relations. bimq turns the
// model into an element graph once, then answers each question with a
// small state machine:
//
//	generate_query -> execute -> evaluate -> summarize -> done
//	                               |   ^
//	                               v   |
//	                              repair
//
// A language model resolves the question into a structured query, the
// query runs against the graph, an evaluator judges the result and, if it
// is rejected, a repairer proposes a better query. Collaborator failures
// never abort a session; they degrade to defaults and are recorded.
//
// # Getting Started
//
//	cfg, err := config.Load("bimq.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	a, err := bimq.Open(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer a.Close()
//
//	ans, err := a.Ask(ctx, "Which rooms are adjacent to each other?")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(ans.Summary)
//
// Tests and offline use can bypass the language model entirely:
//
//	a, err := bimq.New(model, bimq.WithCollaborators(workflow.Collaborators{
//		Resolver:  intent.Static{Query: q},
//		Evaluator: rules,
//		Repairer:  intent.Static{},
//	}))
//
// # Concurrency
//
// The graph is built before New returns and never changes afterwards.
// Ask may be called from several goroutines; each call owns its session.
package bimq
