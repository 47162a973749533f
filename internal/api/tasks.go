package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"task-tracker/pkg/task"
)

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.List(r.Context())
	if err != nil {
		s.writeFailure(w, err, task.MsgListFailed)
		return
	}
	writeJSON(w, http.StatusOK, task.OK(tasks, ""))
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	t, err := s.tasks.Get(r.Context(), id)
	if err != nil {
		s.writeFailure(w, err, task.MsgGetFailed)
		return
	}
	writeJSON(w, http.StatusOK, task.OK(*t, ""))
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var in task.AddInput
	if !decodeBody(w, r, &in) {
		return
	}
	t, err := s.tasks.Add(r.Context(), in)
	if err != nil {
		s.writeFailure(w, err, task.MsgAddFailed)
		return
	}
	writeJSON(w, http.StatusCreated, task.OK(*t, task.MsgAdded))
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var fields task.UpdateFields
	if !decodeBody(w, r, &fields) {
		return
	}
	t, err := s.tasks.Update(r.Context(), id, fields)
	if err != nil {
		s.writeFailure(w, err, task.MsgUpdFailed)
		return
	}
	writeJSON(w, http.StatusOK, task.OK(*t, task.MsgUpdated))
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := s.tasks.Delete(r.Context(), id); err != nil {
		s.writeFailure(w, err, task.MsgDelFailed)
		return
	}
	writeJSON(w, http.StatusOK, task.Envelope[task.Task]{Success: true, Message: task.MsgDeleted})
}

// taskID parses the {id} path value. An id that is not a positive integer
// cannot name a row, so it is answered as not found.
func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, task.Fail(task.MsgNotFound, ""))
		return 0, false
	}
	return id, true
}

// decodeBody reads a JSON object into v. An empty body leaves v zero.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, task.Fail("Request body too large", err.Error()))
		return false
	}
	writeJSON(w, http.StatusBadRequest, task.Fail("Invalid request body", err.Error()))
	return false
}
