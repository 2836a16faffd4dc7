package mcp

import "github.com/mark3labs/mcp-go/mcp"

var listToolDef = mcp.NewTool("submission_list",
	mcp.WithDescription("List contact form submissions grouped into inbox, accepted, completed and trash, with counts. "+
		"Empty inbox submissions are moved to trash first."),
	mcp.WithString("status",
		mcp.Description("Only return this bucket"),
		mcp.Enum("inbox", "accepted", "completed", "trash"),
	),
)

var getToolDef = mcp.NewTool("submission_get",
	mcp.WithDescription("Fetch one submission by id."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Submission id"),
	),
)

var setStatusToolDef = mcp.NewTool("submission_set_status",
	mcp.WithDescription("Move a submission to another bucket. Accepts the canonical statuses and common synonyms "+
		"(new, pending, done, deleted)."),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Submission id"),
	),
	mcp.WithString("status",
		mcp.Required(),
		mcp.Description("Target status: inbox, accepted, completed or trash"),
	),
)

var clearInboxToolDef = mcp.NewTool("submission_clear_inbox",
	mcp.WithDescription("Move every inbox submission that has no name, email, car, phone or message to trash."),
	mcp.WithIdempotentHintAnnotation(true),
)
