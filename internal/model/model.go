// Package model defines data structures for mcp-notes.
//
// This package contains:
//   - Note: the note record owned by the entity store
//   - NoteFields / NotePatch: insert and partial update inputs
//   - Config: server configuration
//   - JSON-RPC 2.0: request/response/error structures
//   - MCP: tool/resource discovery and call/read structures
package model
