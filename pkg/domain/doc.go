/*
Package domain contains the core domain models for the factorio-llm bridge.

It defines the entities shared across the transport, game, and conversation
layers, such as chat Messages, ToolDefinitions, and the game-state records
the facade returns. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Message: One conversation turn in the chat backend's wire shape.
  - ToolDefinition: A catalog entry describing one callable game operation.
  - GameInfo, PowerStats, MiningReport, ...: Typed records decoded from
    in-game replies.
  - Kind: The failure taxonomy used in tool-result strings and logs.
*/
package domain
