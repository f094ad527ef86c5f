package mcp

import "github.com/mark3labs/mcp-go/mcp"

var historyListToolDef = mcp.NewTool("history_list",
	mcp.WithDescription("List recently viewed courses, labs and programs, newest first."),
)

var historyAddToolDef = mcp.NewTool("history_add",
	mcp.WithDescription("Record that a course, lab or program was viewed. Moves an existing entry to the front; the list keeps at most 10 entries."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Entity ID")),
	mcp.WithString("type", mcp.Required(), mcp.Enum("course", "lab", "program"), mcp.Description("Entity type")),
	mcp.WithString("name", mcp.Description("Display name")),
	mcp.WithString("href", mcp.Description("Link to the entity page")),
	mcp.WithNumber("ects", mcp.Description("ECTS credits (courses)")),
	mcp.WithString("code", mcp.Description("Course code")),
	mcp.WithArray("topics", mcp.Description("Topics (labs)"), mcp.Items(map[string]any{"type": "string"})),
)

var historyRemoveToolDef = mcp.NewTool("history_remove",
	mcp.WithDescription("Remove one entry from the recently viewed list."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Entity ID")),
	mcp.WithString("type", mcp.Required(), mcp.Enum("course", "lab", "program"), mcp.Description("Entity type")),
)

var historyClearToolDef = mcp.NewTool("history_clear",
	mcp.WithDescription("Clear the recently viewed list."),
)

var planShowToolDef = mcp.NewTool("plan_show",
	mcp.WithDescription("Show the draft semester plan, whether the planner is open, and ECTS totals per term."),
)

var planParseToolDef = mcp.NewTool("plan_parse",
	mcp.WithDescription("Extract the semester plan embedded in an advisor response (<!--SEMESTER_PLAN:{...}-->)."),
	mcp.WithString("content", mcp.Required(), mcp.Description("Advisor response text")),
	mcp.WithBoolean("apply", mcp.Description("Make the parsed plan the draft and open the planner")),
)

var planSetToolDef = mcp.NewTool("plan_set",
	mcp.WithDescription("Replace the draft semester plan and open the planner."),
	mcp.WithObject("plan", mcp.Required(), mcp.Description(`Plan object: {"winter": [course], "summer": [course], "title": "..."}; each course needs id_course`)),
)

var planAddCourseToolDef = mcp.NewTool("plan_add_course",
	mcp.WithDescription("Add a course to one term of the draft plan. Adding a course already in that term changes nothing."),
	mcp.WithString("term", mcp.Required(), mcp.Enum("winter", "summer"), mcp.Description("Term")),
	mcp.WithObject("course", mcp.Required(), mcp.Description("Course object with id_course; other fields are kept as given")),
)

var planRemoveCourseToolDef = mcp.NewTool("plan_remove_course",
	mcp.WithDescription("Remove a course from one term of the draft plan."),
	mcp.WithString("term", mcp.Required(), mcp.Enum("winter", "summer"), mcp.Description("Term")),
	mcp.WithString("id_course", mcp.Required(), mcp.Description("Course ID")),
)

var planClearToolDef = mcp.NewTool("plan_clear",
	mcp.WithDescription("Discard the draft semester plan."),
)

var planToggleToolDef = mcp.NewTool("plan_toggle",
	mcp.WithDescription("Open or close the planner."),
)

var selectionToggleToolDef = mcp.NewTool("selection_toggle",
	mcp.WithDescription("Select or deselect an entry."),
	mcp.WithString("category", mcp.Required(), mcp.Enum("courses", "labs", "documents"), mcp.Description("Category")),
	mcp.WithString("id", mcp.Required(), mcp.Description("Entry ID")),
)

var selectionListToolDef = mcp.NewTool("selection_list",
	mcp.WithDescription("List selected courses, labs and documents."),
)

var selectionClearToolDef = mcp.NewTool("selection_clear",
	mcp.WithDescription("Deselect everything."),
)

var advisorAskToolDef = mcp.NewTool("advisor_ask",
	mcp.WithDescription("Ask the AI study advisor. A semester plan in the answer becomes the draft plan."),
	mcp.WithString("question", mcp.Required(), mcp.Description("Question for the advisor")),
	mcp.WithBoolean("include_selection", mcp.Description("Send the selected courses and labs along")),
	mcp.WithArray("documents", mcp.Description("Paths of .txt/.md documents to attach"), mcp.Items(map[string]any{"type": "string"})),
)
