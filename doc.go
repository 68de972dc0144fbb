/*
Package factoriollm connects a running Factorio server to a large language
model. The model talks, the bridge translates: natural language requests
become console commands executed over RCON, and the decoded game state flows
back as tool results the model can reason about.

# Concept

The bridge treats the game as a remote procedure surface. Every capability
(reading the tick, scanning for ore, crafting, placing buildings) is one
round trip: build a Lua expression, execute it over the console link, decode
the serialized reply into a typed record. A fixed catalog of such
capabilities is advertised to the model as tools; a conversation loop calls
the model, dispatches the tool calls it makes, feeds results back, and stops
when the model answers in prose.

This Hexagonal Architecture keeps the core loop independent of its
surroundings: the console, the chat backend and the observers are ports, so
the same loop serves the interactive CLI, the HTTP API and the MCP server.

# Key Features

  - Single-flight transport: one authenticated RCON connection, one command
    in flight, explicit reconnect policy.
  - Defensive decoding: the serialized Lua replies are parsed structurally,
    so braces inside strings never corrupt sibling fields.
  - Bounded agency: tool iterations and history length are capped; every
    tool failure is reported to the model as text instead of aborting.
  - Pluggable backends: a local Ollama daemon and the hosted API speak the
    same wire format; swap with one option.

# Usage

Assemble a Bridge, connect, and chat:

	package main

	import (
		"context"
		"fmt"
		"log"

		factoriollm "github.com/nerdpudding/factorio-llm"
	)

	func main() {
		bridge, err := factoriollm.New(
			factoriollm.WithAddress("127.0.0.1", 25575, "rcon-password"),
			factoriollm.WithOllama("http://localhost:11434", ""),
			factoriollm.WithModel("qwen3:14b"),
		)
		if err != nil {
			log.Fatal(err)
		}
		defer bridge.Close()

		ctx := context.Background()
		if err := bridge.Connect(ctx); err != nil {
			log.Fatal(err)
		}

		reply, err := bridge.Chat(ctx, "How much iron ore is near me?")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(reply)
	}
*/
package factoriollm
