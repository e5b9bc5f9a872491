package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIssue(t *testing.T) {
	var got issueRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/api/2/issue", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"10001","key":"SI-7"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", User: "bot", Token: "secret", Project: "SI", IssueType: "Task"}, srv.Client())
	key, err := c.CreateIssue(context.Background(), "New service from Org", "Details here:\nhttp://x/admin/services/1")
	require.NoError(t, err)
	assert.Equal(t, "SI-7", key)
	assert.Equal(t, "SI", got.Fields.Project.Key)
	assert.Equal(t, "Task", got.Fields.IssueType.Name)
	assert.Equal(t, "New service from Org", got.Fields.Summary)
}

func TestCreateIssueErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorMessages":[],"errors":{"project":"project is required"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, srv.Client())
	_, err := c.CreateIssue(context.Background(), "s", "d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project is required")

	_, err = NewClient(Config{}, nil).CreateIssue(context.Background(), "s", "d")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
