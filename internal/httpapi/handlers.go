package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nibzard/todos-go/internal/todo"
)

const maxBodySize = 64 << 10 // 64KB

// textRequest is the free-text form of a create request.
type textRequest struct {
	Text *string `json:"text"`
}

func (s *Server) handleList(c *gin.Context) {
	views := s.store.List()

	if f := c.Query("filter"); f != "" {
		filtered := make([]todo.TaskView, 0, len(views))
		for _, v := range views {
			switch f {
			case "ready":
				if v.Done || v.IsBlocked {
					continue
				}
			case "blocked":
				if v.Done || !v.IsBlocked {
					continue
				}
			case "done":
				if !v.Done {
					continue
				}
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown filter %q", f)})
				return
			}
			filtered = append(filtered, v)
		}
		views = filtered
	}

	c.JSON(http.StatusOK, gin.H{"tasks": views})
}

func (s *Server) handleCreate(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	var in todo.Input
	var req textRequest
	if err := json.Unmarshal(body, &req); err == nil && req.Text != nil {
		draft, ok := todo.ParseDraft(*req.Text, s.store)
		if !ok {
			writeValidation(c, &todo.ValidationError{Violations: []todo.Violation{{
				Field:   "text",
				Rule:    todo.RuleMinLength,
				Message: "must not be blank",
			}}})
			return
		}
		in = draft.Input()
	} else {
		if err := todo.ValidateInputJSON(body); err != nil {
			writeError(c, err)
			return
		}
		if err := json.Unmarshal(body, &in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	id, err := s.store.CreateGated(in)
	if errors.Is(err, todo.ErrBlocked) {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot create a done task with open prerequisites"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.persist(); err != nil {
		writeSaveError(c, err)
		return
	}

	view, _ := s.store.Get(id)
	c.JSON(http.StatusCreated, gin.H{
		"id":   id,
		"task": view,
	})
}

func (s *Server) handleGet(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	view, found := s.store.Get(id)
	if !found {
		writeNotFound(c, id)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleUpdate(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	if !s.store.Exists(id) {
		writeNotFound(c, id)
		return
	}

	body, ok := readBody(c)
	if !ok {
		return
	}
	if err := todo.ValidateInputJSON(body); err != nil {
		writeError(c, err)
		return
	}
	var in todo.Input
	if err := json.Unmarshal(body, &in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	found, err := s.store.UpdateGated(id, in)
	if !found {
		writeNotFound(c, id)
		return
	}
	if errors.Is(err, todo.ErrBlocked) {
		writeBlocked(c, s.store, id)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.persist(); err != nil {
		writeSaveError(c, err)
		return
	}

	view, _ := s.store.Get(id)
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleToggle(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	found, err := s.store.ToggleGated(id)
	if !found {
		writeNotFound(c, id)
		return
	}
	if err != nil {
		writeBlocked(c, s.store, id)
		return
	}
	if err := s.persist(); err != nil {
		writeSaveError(c, err)
		return
	}

	view, _ := s.store.Get(id)
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleDelete(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	if !s.store.Delete(id) {
		writeNotFound(c, id)
		return
	}
	if err := s.persist(); err != nil {
		writeSaveError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDraft(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	text := ""
	if req.Text != nil {
		text = *req.Text
	}
	draft, ok := todo.ParseDraft(text, s.store)
	if !ok {
		writeValidation(c, &todo.ValidationError{Violations: []todo.Violation{{
			Field:   "text",
			Rule:    todo.RuleMinLength,
			Message: "must not be blank",
		}}})
		return
	}
	c.JSON(http.StatusOK, draft)
}

func taskID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return 0, false
	}
	return id, true
}

func readBody(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return nil, false
	}
	return body, true
}

func writeNotFound(c *gin.Context, id int) {
	c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("task #%d not found", id)})
}

// writeBlocked reports a refused completion with the task's prerequisites.
func writeBlocked(c *gin.Context, store *todo.Store, id int) {
	deps := []int{}
	if view, ok := store.Get(id); ok {
		deps = view.DependsOn
	}
	c.JSON(http.StatusConflict, gin.H{
		"error":     fmt.Sprintf("task #%d is blocked", id),
		"dependsOn": deps,
	})
}

func writeValidation(c *gin.Context, ve *todo.ValidationError) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":      "validation failed",
		"violations": ve.Violations,
	})
}

func writeError(c *gin.Context, err error) {
	var ve *todo.ValidationError
	if errors.As(err, &ve) {
		writeValidation(c, ve)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func writeSaveError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed: " + err.Error()})
}
