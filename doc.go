/*
Package parada is the conversational core of a Metro de Granada departures bot: a per-user dialog state machine over live arrival data, favorite stops and inline keyboards.

It separates the dialog logic (engine) from session persistence (stores), live data access (schedule gateway) and presentation (transports). The Bot consumes normalized events and produces Reply descriptors, so the same core serves a Telegram-style chat, an HTTP API, an MCP server or a local REPL.

# Concept

Every user owns one session with a dialog state (idle, awaiting a stop query, showing a schedule, managing favorites). Inbound events are serialized per user and routed through the state machine; fetches against the transit feed run outside the per-user lock with a busy marker guarding against duplicates. Departures and the stop catalog are cached with short TTLs and singleflight refresh, so bursts of users cost one upstream call.

# Key Features

  - Deterministic dialog: same session state and event always yield the same reply.
  - Hexagonal layout: stores (memory, file, Redis) and the feed client are adapters behind small ports.
  - Resilient fetching: bounded timeouts, retry with backoff, cached catalog, graceful degradation messages.
  - Transport-neutral replies: text plus a keyboard descriptor each host renders its own way.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/granalabs/parada"
		"github.com/granalabs/parada/pkg/domain"
	)

	func main() {
		bot, err := parada.New("https://movgr.apis.mianfg.me")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()

		// Greet: replies carry text plus an inline menu descriptor.
		reply, err := bot.Handle(ctx, domain.CommandEvent("user-1", domain.CommandStart))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(reply.Text)

		// Free text while picking a stop searches the catalog.
		bot.Handle(ctx, domain.CommandEvent("user-1", domain.CommandSearch))
		reply, err = bot.Handle(ctx, domain.TextEvent("user-1", "recogidas"))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(reply.Text)
	}
*/
package parada
