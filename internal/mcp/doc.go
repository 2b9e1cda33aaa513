// Package mcp exposes the context engine as Model Context Protocol tools
// over the official go-sdk, served on stdio by the daemon.
package mcp
