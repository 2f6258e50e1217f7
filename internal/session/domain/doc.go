// Package domain holds the session state owned by the turn orchestrator.
//
// A session is one player character in one world location with an
// append-only message log. The orchestrator is the only writer; every other
// component receives bounded copies built by the briefing package.
package domain
