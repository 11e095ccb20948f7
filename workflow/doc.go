// Package workflow runs one natural-language question through the query
// pipeline:
//
//	GenerateQuery -> Execute -> Evaluate -> Summarize -> Done
//	                              |            ^
//	                              v            |
//	                            Repair --------+
//	                              |  ^
//	                              v  |
//	                            Execute (repaired, accepted without
//	                                     re-evaluation) -> Summarize
//
// Every transition is a pure function of the Session (see Next), so a
// serialized session can be resumed against the same graph. Collaborator
// failures never abort a session: they are recorded in Session.Failures and
// replaced by a safe default (an empty query, a retry decision, the fallback
// summary).
package workflow
