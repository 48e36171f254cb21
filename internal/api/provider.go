package api

import (
	"github.com/oceanplexian/gogios/internal/downtime"
	"github.com/oceanplexian/gogios/internal/logging"
	"github.com/oceanplexian/gogios/internal/objects"
	objruntime "github.com/oceanplexian/gogios/internal/runtime"
)

// StateProvider gives the livestatus API access to all runtime state.
type StateProvider struct {
	Store     *objects.ObjectStore
	Global    *objects.GlobalState
	Comments  *downtime.CommentManager
	Downtimes *downtime.DowntimeManager
	Logger    *logging.Logger
	LogFile   string

	// Runtime is optional; nil in single-node mode. It backs the
	// "endpoints" table, the only livestatus table with no typed
	// objects.ObjectStore equivalent.
	Runtime *objruntime.Runtime
}

// CommandSink is a callback for executing external commands from the API.
type CommandSink func(name string, args []string)

// CommandEntry is one parsed external command: its name and its
// semicolon-separated arguments.
type CommandEntry struct {
	Name string
	Args []string
}

// BatchCommandSink is a callback for executing several external commands
// in a single call.
type BatchCommandSink func(cmds []CommandEntry)
