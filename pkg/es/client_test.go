package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ent-messaging-go/internal/config"
	"ent-messaging-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeES 模拟 Elasticsearch，客户端要求响应带有产品标识头。
func fakeES(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(config.ElasticsearchConfig{Addresses: srv.URL, IndexName: "ent_messages"})
	require.NoError(t, err)
	return c
}

func TestBuildConversationQuery(t *testing.T) {
	body, err := json.Marshal(buildConversationQuery(42, "examen vendredi", 0))
	require.NoError(t, err)
	s := string(body)
	assert.Contains(t, s, `"size":20`)
	assert.Contains(t, s, `"term":{"conversation_id":42}`)
	assert.Contains(t, s, `"query":"examen vendredi"`)
	assert.Contains(t, s, `"operator":"and"`)
}

func TestIndexMessage(t *testing.T) {
	var gotPath string
	var gotDoc model.EsMessage
	c := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotDoc))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	})

	doc := model.EsMessage{MessageID: 9, ConversationID: 3, SenderID: "p-1", MessageText: "bonjour", SentAt: time.Now().UTC()}
	require.NoError(t, c.IndexMessage(context.Background(), doc))
	assert.Equal(t, "/ent_messages/_doc/9", gotPath)
	assert.Equal(t, "bonjour", gotDoc.MessageText)
}

func TestIndexMessage_Error(t *testing.T) {
	c := fakeES(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"mapper_parsing_exception"}`)
	})
	assert.Error(t, c.IndexMessage(context.Background(), model.EsMessage{MessageID: 1}))
}

func TestSearchConversation(t *testing.T) {
	c := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/ent_messages/_search"))
		_, _ = io.WriteString(w, `{"hits":{"hits":[
			{"_score":1.5,"_source":{"message_id":2,"conversation_id":42,"sender_id":"s-1","message_text":"examen vendredi ?"}},
			{"_score":0.7,"_source":{"message_id":1,"conversation_id":42,"sender_id":"p-1","message_text":"examen"}}
		]}}`)
	})

	hits, err := c.SearchConversation(context.Background(), 42, "examen", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.EqualValues(t, 2, hits[0].MessageID)
	assert.Equal(t, 1.5, hits[0].Score)
}

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	var created bool
	c := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			_, _ = io.WriteString(w, `{"acknowledged":true}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	require.NoError(t, c.EnsureIndex(context.Background()))
	assert.True(t, created)
}
