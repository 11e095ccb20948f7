// Package steperr provides the typed failure returned by the LLM-backed
// workflow steps: intent resolution, evaluation, repair and summarization.
//
// Every failure carries the step that produced it and one Kind from a small
// closed set, so the orchestrator can react to the kind of failure instead
// of the mere presence of an error:
//
//	if err != nil {
//	    se := steperr.Classify("evaluate", err)
//	    switch se.Kind {
//	    case steperr.KindTimeout, steperr.KindUpstream:
//	        // degrade to a retry decision
//	    }
//	}
package steperr
