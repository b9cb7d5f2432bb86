/*
Package taxflow runs the IPTU payment workflow: a durable, multi-turn
conversation that takes a citizen from property inscription to emitted DARM
payment slips, backed by the municipal tax service.

# Concept

Taxflow treats the conversation as a graph of steps. Each Execute call is
one turn: the engine loads the session, applies the turn payload, advances
through the steps until one of them needs more input (a prompt) or the
workflow completes, and persists the resulting state. Given the same state
and payload, a turn is always reproducible; remote lookups are guarded so a
re-delivered turn does not hit the upstream service twice.

The core is decoupled from its adapters. Session state can live in memory,
on disk or in Redis; the municipal service is reached through a gateway
facade with an in-process fake for demos and tests; the engine itself can
be embedded in any surface, and the repo ships HTTP and MCP servers plus a
CLI.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/lucasmbraga/taxflow"
	)

	func main() {
		eng := taxflow.New()

		ctx := context.Background()

		// First turn: no payload, the engine asks for the property.
		st, err := eng.Execute(ctx, "session-123", nil)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(st.Prompt.Description)

		// Each following turn answers the pending prompt.
		st, err = eng.Execute(ctx, "session-123", map[string]any{
			"property_id": "12345678",
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(st.Prompt.Description)
	}
*/
package taxflow
