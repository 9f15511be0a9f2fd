// Package mcpserver exposes the session engine as MCP tools, so an MCP client
// can act as the presentation layer. One stdio connection drives one session.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/comigor/chatrooms/internal/logger"
	"github.com/comigor/chatrooms/internal/persona"
	"github.com/comigor/chatrooms/internal/session"
)

// Tools serves the room catalog and a single session.
type Tools struct {
	rooms   *persona.Registry
	session *session.Session
}

func NewTools(rooms *persona.Registry, s *session.Session) *Tools {
	return &Tools{rooms: rooms, session: s}
}

// NewServer registers every tool on a new MCP server.
func NewServer(t *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer("chatrooms", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("list_rooms",
		mcp.WithDescription("Lists the persona chat rooms that can be joined."),
	), t.ListRooms)
	s.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Joins a room. Any previous conversation is discarded."),
		mcp.WithString("room_id", mcp.Required(), mcp.Description("Room id from list_rooms")),
	), t.StartSession)
	s.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Sends a message to the persona of the active room and returns its reply."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Message text")),
	), t.SendMessage)
	s.AddTool(mcp.NewTool("end_session",
		mcp.WithDescription("Leaves the active room and clears the conversation."),
	), t.EndSession)
	s.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Returns the active room, the full message log and whether a reply is pending."),
	), t.GetSession)

	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (t *Tools) ListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.rooms.List())
}

func (t *Tools) StartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID := request.GetString("room_id", "")
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}
	if err := t.session.Start(roomID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(t.session.Snapshot())
}

func (t *Tools) SendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := t.session.Send(ctx, request.GetString("content", ""))
	if err != nil {
		logger.L.Warn("send_message rejected", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(msg)
}

func (t *Tools) EndSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.session.End()
	return jsonResult(t.session.Snapshot())
}

func (t *Tools) GetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.session.Snapshot())
}
