package stream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
)

func TestTrimFrame(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}\r\n", `{"a":1}`},
		{`[{"a":1}`, `{"a":1}`},
		{`,{"a":1}`, `{"a":1}`},
		{`{"a":1},`, `{"a":1}`},
		{`[{"a":1}]`, `{"a":1}`},
		{`]`, ``},
		{`[`, ``},
		{``, ``},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, string(trimFrame([]byte(tt.in))), "input %q", tt.in)
	}
}

func TestParseFrame(t *testing.T) {
	f, err := parseFrame([]byte(`{"documentChange":{"document":{"name":"x/y"},"removedTargetIds":[1]}}`))
	require.NoError(t, err)
	require.NotNil(t, f.DocumentChange)
	assert.Equal(t, "document_change", f.frameType())
	assert.Equal(t, []int32{1}, f.DocumentChange.RemovedTargetIDs)

	f, err = parseFrame([]byte(`{"targetChange":{"targetChangeType":"REMOVE","cause":{"code":7,"message":"denied"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "REMOVE", f.TargetChange.TargetChangeType)
	assert.Equal(t, 7, f.TargetChange.Cause.Code)

	f, err = parseFrame([]byte(`{"filter":{"count":3}}`))
	require.NoError(t, err)
	assert.Equal(t, "filter", f.frameType())

	f, err = parseFrame([]byte("   \n"))
	assert.NoError(t, err)
	assert.Nil(t, f)

	_, err = parseFrame([]byte(`{"documentChange":`))
	assert.Error(t, err)
}

func TestBuildListenRequest_Collection(t *testing.T) {
	conf := Config{ProjectID: "p"}.withDefaults()
	unread, err := target.Where("read", target.OpEqual, false)
	require.NoError(t, err)
	recent, err := target.Where("priority", target.OpGreaterOrEqual, 2)
	require.NoError(t, err)
	tgt, err := target.Collection("users/u1/notifications", unread, recent)
	require.NoError(t, err)

	req, err := buildListenRequest(conf, tgt)
	require.NoError(t, err)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"database": "projects/p/databases/(default)",
		"addTarget": {
			"targetId": 1,
			"query": {
				"parent": "projects/p/databases/(default)/documents/users/u1",
				"structuredQuery": {
					"from": [{"collectionId": "notifications"}],
					"where": {"compositeFilter": {"op": "AND", "filters": [
						{"fieldFilter": {"field": {"fieldPath": "read"}, "op": "EQUAL", "value": {"booleanValue": false}}},
						{"fieldFilter": {"field": {"fieldPath": "priority"}, "op": "GREATER_THAN_OR_EQUAL", "value": {"integerValue": "2"}}}
					]}}
				}
			}
		}
	}`, string(raw))
}

func TestBuildListenRequest_RootCollectionSingleFilter(t *testing.T) {
	conf := Config{ProjectID: "p", DatabaseID: "tracker"}.withDefaults()
	f, err := target.Where("status", target.OpIn, []string{"active", "trial"})
	require.NoError(t, err)
	tgt, err := target.Collection("licenses", f)
	require.NoError(t, err)

	req, err := buildListenRequest(conf, tgt)
	require.NoError(t, err)

	assert.Equal(t, "projects/p/databases/tracker/documents", req.AddTarget.Query.Parent)
	require.NotNil(t, req.AddTarget.Query.StructuredQuery.Where.FieldFilter)
	assert.Nil(t, req.AddTarget.Query.StructuredQuery.Where.CompositeFilter)
	assert.Equal(t, "IN", req.AddTarget.Query.StructuredQuery.Where.FieldFilter.Op)
}

func TestBuildListenRequest_Document(t *testing.T) {
	conf := Config{ProjectID: "p"}.withDefaults()
	tgt, err := target.Document("licenses/l1")
	require.NoError(t, err)

	req, err := buildListenRequest(conf, tgt)
	require.NoError(t, err)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"database": "projects/p/databases/(default)",
		"addTarget": {"targetId": 1, "documents": {"documents": ["projects/p/databases/(default)/documents/licenses/l1"]}}
	}`, string(raw))
}
