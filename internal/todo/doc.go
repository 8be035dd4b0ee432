// Package todo holds the task dependency model: the task store, the
// free-text draft parser, input validation and the snapshot file.
//
// A task may name other tasks as prerequisites. The store keeps those
// references consistent:
//
//   - ids that do not exist at write time are dropped silently
//   - a task never depends on itself
//   - deleting a task removes its id from every other task's prerequisites
//
// A task is blocked while any of its prerequisites is missing or not done.
// Create, Update and ToggleDone do not enforce that gate. CreateGated,
// UpdateGated and ToggleGated refuse with ErrBlocked to complete a blocked
// task, checking and writing under the same lock.
//
// # Draft syntax
//
// ParseDraft turns one line of text into a description and a set of
// prerequisites. A trailing parenthesised list of #-prefixed ids is read as
// the prerequisite set:
//
//	ship app (#1, #2)   -> "ship app", [1 2]
//	do thing (#9)       -> "do thing (#9)", []   (when #9 does not exist)
//
// # Snapshot file
//
// A store can be written to and read from a JSON snapshot:
//
//	{
//	  "schema_version": 1,
//	  "session_id": "5f0c…",
//	  "next_id": 4,
//	  "tasks": [
//	    {"id": 1, "description": "do the laundry", "done": true, "dependsOn": []}
//	  ]
//	}
//
// Snapshots are written with 2-space indentation and a trailing newline.
package todo
