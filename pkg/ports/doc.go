/*
Package ports defines the driven ports (interfaces) for the bridge.

These interfaces decouple the conversation loop from external
implementations, allowing it to work with different game transports, model
backends, and lock providers.

# Key Interfaces

  - Console: The command link into a running game server (RCON in practice).
  - ChatClient: The model backend (Ollama in practice).
  - ToolDispatcher: Executes tool calls and folds every failure into a
    result string.
  - SessionLocker: Serializes exchanges per session across handlers.
*/
package ports
