package mcp

import "github.com/mark3labs/mcp-go/mcp"

var eventIngestToolDef = mcp.NewTool("event_ingest",
	mcp.WithDescription("Record a batch of raw activity events (git commits, file edits, terminal commands). Each event needs a timestamp, a known source, and an object."),
	mcp.WithArray("events",
		mcp.Required(),
		mcp.Description("Events to record. Each item: {time: RFC3339 timestamp, source: git|file|browser|terminal|meeting|manual, object: what was touched, inferred_intent?: string, metadata?: object}"),
	),
)

var clusterRunToolDef = mcp.NewTool("cluster_run",
	mcp.WithDescription("Group recent events into focus sessions by time gap, summarize each session, and index it for semantic search."),
	mcp.WithNumber("hours_back",
		mcp.Description("How far back to look for events (default 24)"),
	),
	mcp.WithNumber("gap_minutes",
		mcp.Description("Gap threshold in minutes that splits sessions (default 30)"),
	),
)

var contextSearchToolDef = mcp.NewTool("context_search",
	mcp.WithDescription("Ask a natural-language question over captured focus sessions. Returns matching sessions with scores, attached decisions, and a synthesized answer."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("The question to answer"),
	),
	mcp.WithNumber("top_k",
		mcp.Description("Maximum sessions to return (default 5, max 20)"),
	),
)

var sessionRecentToolDef = mcp.NewTool("session_recent",
	mcp.WithDescription("List recent focus sessions, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum sessions to return (default 30, max 100)"),
	),
)

var decisionRecordToolDef = mcp.NewTool("decision_record",
	mcp.WithDescription("Attach a decision to a focus session."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("The session the decision belongs to"),
	),
	mcp.WithString("content",
		mcp.Required(),
		mcp.Description("The decision text"),
	),
	mcp.WithString("decision_type",
		mcp.Description("One of: made, tradeoff, rejected, assumption (default made)"),
	),
)

var decisionListToolDef = mcp.NewTool("decision_list",
	mcp.WithDescription("List decisions newest first, optionally restricted to one session."),
	mcp.WithString("session_id",
		mcp.Description("Restrict the listing to this session"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum decisions to return (default 100)"),
	),
)

var decisionDeleteToolDef = mcp.NewTool("decision_delete",
	mcp.WithDescription("Delete a decision by ID."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("The decision ID"),
	),
)
