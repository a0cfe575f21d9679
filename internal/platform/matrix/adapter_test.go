// ABOUTME: Tests for the Matrix adapter against a fake homeserver
// ABOUTME: Covers notices and edits, relations paging, redaction lookup, topic, members and error mapping

package matrix

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"

	"github.com/2389/modclock/internal/roster"
	"github.com/2389/modclock/internal/status"
)

const (
	testRoom   = "!mods:example.org"
	testRoster = "$roster"
	testBot    = "@clock:example.org"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// request is one call the fake homeserver received.
type request struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// fakeHomeserver records requests and answers them with handle.
type fakeHomeserver struct {
	mu       sync.Mutex
	requests []request
	handle   func(w http.ResponseWriter, r request)
}

func (f *fakeHomeserver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &req.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	f.handle(w, req)
}

func (f *fakeHomeserver) find(method, pathPart string) []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []request
	for _, r := range f.requests {
		if r.Method == method && strings.Contains(r.Path, pathPart) {
			out = append(out, r)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func matrixError(w http.ResponseWriter, code int, errcode string) {
	writeJSON(w, code, map[string]string{"errcode": errcode, "error": "test"})
}

func newTestAdapter(t *testing.T, handle func(w http.ResponseWriter, r request)) (*Adapter, *fakeHomeserver) {
	t.Helper()

	hs := &fakeHomeserver{handle: handle}
	srv := httptest.NewServer(hs)
	t.Cleanup(srv.Close)

	client, err := mautrix.NewClient(srv.URL, id.UserID(testBot), "token")
	require.NoError(t, err)
	return NewAdapter(client, discardLogger()), hs
}

func reaction(eventID, sender, key string) map[string]any {
	return map[string]any{
		"event_id":         eventID,
		"type":             "m.reaction",
		"sender":           sender,
		"room_id":          testRoom,
		"origin_server_ts": 1,
		"content": map[string]any{
			"m.relates_to": map[string]any{"rel_type": "m.annotation", "event_id": testRoster, "key": key},
		},
	}
}

func encryptedReaction(eventID, sender, key string) map[string]any {
	evt := reaction(eventID, sender, key)
	evt["type"] = "m.room.encrypted"
	content := evt["content"].(map[string]any)
	content["algorithm"] = "m.megolm.v1.aes-sha2"
	content["ciphertext"] = "opaque"
	return evt
}

func TestSendMessage_NoticeWithHTML(t *testing.T) {
	a, hs := newTestAdapter(t, func(w http.ResponseWriter, r request) {
		writeJSON(w, http.StatusOK, map[string]string{"event_id": "$new"})
	})

	msgID, err := a.SendMessage(t.Context(), testRoom, "**🕒 Mod List**\n🟢 Modding: —")
	require.NoError(t, err)
	assert.Equal(t, status.MessageID("$new"), msgID)

	sent := hs.find(http.MethodPut, "/send/m.room.message/")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Path, testRoom)
	assert.Equal(t, "m.notice", sent[0].Body["msgtype"])
	assert.Equal(t, "org.matrix.custom.html", sent[0].Body["format"])
	assert.Contains(t, sent[0].Body["formatted_body"], "<strong>🕒 Mod List</strong>")
}

func TestEditMessage_Replace(t *testing.T) {
	a, hs := newTestAdapter(t, func(w http.ResponseWriter, r request) {
		writeJSON(w, http.StatusOK, map[string]string{"event_id": "$edit"})
	})

	require.NoError(t, a.EditMessage(t.Context(), testRoom, testRoster, "updated"))

	sent := hs.find(http.MethodPut, "/send/m.room.message/")
	require.Len(t, sent, 1)
	rel, ok := sent[0].Body["m.relates_to"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "m.replace", rel["rel_type"])
	assert.Equal(t, testRoster, rel["event_id"])
	newContent, ok := sent[0].Body["m.new_content"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "updated", newContent["body"])
}

func TestFetchMessage(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r request) {
		switch {
		case strings.HasSuffix(r.Path, "/event/"+testRoster):
			writeJSON(w, http.StatusOK, map[string]any{
				"event_id": testRoster, "room_id": testRoom, "type": "m.room.message",
				"sender": testBot, "origin_server_ts": 1,
				"content": map[string]any{"msgtype": "m.notice", "body": "roster"},
			})
		case strings.HasSuffix(r.Path, "/event/$redacted"):
			writeJSON(w, http.StatusOK, map[string]any{
				"event_id": "$redacted", "room_id": testRoom, "type": "m.room.message",
				"sender": testBot, "origin_server_ts": 1, "content": map[string]any{},
				"unsigned": map[string]any{"redacted_because": map[string]any{
					"event_id": "$r", "type": "m.room.redaction", "sender": "@mod:example.org", "origin_server_ts": 2, "content": map[string]any{},
				}},
			})
		default:
			matrixError(w, http.StatusNotFound, "M_NOT_FOUND")
		}
	})

	msg, err := a.FetchMessage(t.Context(), testRoom, testRoster)
	require.NoError(t, err)
	assert.Equal(t, &roster.Message{ID: testRoster, Channel: testRoom, Content: "roster"}, msg)

	_, err = a.FetchMessage(t.Context(), testRoom, "$redacted")
	assert.ErrorIs(t, err, roster.ErrMessageNotFound)

	_, err = a.FetchMessage(t.Context(), testRoom, "$missing")
	assert.ErrorIs(t, err, roster.ErrMessageNotFound)
}

func TestListReactionUsers_PagesAndCountsEncrypted(t *testing.T) {
	a, hs := newTestAdapter(t, func(w http.ResponseWriter, r request) {
		if !strings.Contains(r.Path, "/relations/"+testRoster) {
			matrixError(w, http.StatusNotFound, "M_NOT_FOUND")
			return
		}
		if !strings.Contains(r.Query, "from=page2") {
			writeJSON(w, http.StatusOK, map[string]any{
				"chunk": []any{
					reaction("$r1", "@alice:example.org", "🟢"),
					reaction("$r2", "@bob:example.org", "☕"),
				},
				"next_batch": "page2",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"chunk": []any{
				encryptedReaction("$r3", "@carol:example.org", "🟢"),
				reaction("$r4", "@alice:example.org", "🟢"),
			},
		})
	})

	users, err := a.ListReactionUsers(t.Context(), testRoom, testRoster, "🟢")
	require.NoError(t, err)
	assert.Equal(t, []status.UserID{"@alice:example.org", "@carol:example.org"}, users)
	assert.Len(t, hs.find(http.MethodGet, "/relations/"), 2)

	// Listing indexes reactions so their redactions are recognised later.
	ref, ok := a.index.Take("$r2")
	require.True(t, ok)
	assert.Equal(t, reactionRef{Room: testRoom, Target: testRoster, Key: "☕", Sender: "@bob:example.org"}, ref)
}

func TestRemoveReaction_RedactsMatchingEvent(t *testing.T) {
	a, hs := newTestAdapter(t, func(w http.ResponseWriter, r request) {
		switch {
		case strings.Contains(r.Path, "/relations/"):
			writeJSON(w, http.StatusOK, map[string]any{
				"chunk": []any{
					reaction("$r1", "@alice:example.org", "🟢"),
					reaction("$r2", "@alice:example.org", "☕"),
					reaction("$r3", "@bob:example.org", "☕"),
				},
			})
		case strings.Contains(r.Path, "/redact/"):
			writeJSON(w, http.StatusOK, map[string]string{"event_id": "$redaction"})
		default:
			matrixError(w, http.StatusNotFound, "M_NOT_FOUND")
		}
	})

	require.NoError(t, a.RemoveReaction(t.Context(), testRoom, testRoster, "☕", "@alice:example.org"))

	redactions := hs.find(http.MethodPut, "/redact/")
	require.Len(t, redactions, 1)
	assert.Contains(t, redactions[0].Path, "/redact/$r2/")

	// Nothing to remove is not an error.
	require.NoError(t, a.RemoveReaction(t.Context(), testRoom, testRoster, "⛔", "@alice:example.org"))
	assert.Len(t, hs.find(http.MethodPut, "/redact/"), 1)
}

func TestRemoveReaction_Forbidden(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r request) {
		switch {
		case strings.Contains(r.Path, "/relations/"):
			writeJSON(w, http.StatusOK, map[string]any{
				"chunk": []any{reaction("$r1", "@alice:example.org", "🟢")},
			})
		default:
			matrixError(w, http.StatusForbidden, "M_FORBIDDEN")
		}
	})

	err := a.RemoveReaction(t.Context(), testRoom, testRoster, "🟢", "@alice:example.org")
	assert.ErrorIs(t, err, roster.ErrNotAuthorized)
}

func TestEditChannelTopic(t *testing.T) {
	a, hs := newTestAdapter(t, func(w http.ResponseWriter, r request) {
		writeJSON(w, http.StatusOK, map[string]string{"event_id": "$topic"})
	})

	require.NoError(t, a.EditChannelTopic(t.Context(), testRoom, "🕒 Mod List • 🟢Modding: ~"))

	sent := hs.find(http.MethodPut, "/state/m.room.topic")
	require.Len(t, sent, 1)
	assert.Equal(t, "🕒 Mod List • 🟢Modding: ~", sent[0].Body["topic"])
}

func TestMemberName(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r request) {
		switch {
		case strings.HasSuffix(r.Path, "/@alice:example.org"):
			writeJSON(w, http.StatusOK, map[string]any{"membership": "join", "displayname": "Alice"})
		case strings.HasSuffix(r.Path, "/@quiet:example.org"):
			writeJSON(w, http.StatusOK, map[string]any{"membership": "join"})
		case strings.HasSuffix(r.Path, "/@gone:example.org"):
			writeJSON(w, http.StatusOK, map[string]any{"membership": "leave", "displayname": "Gone"})
		default:
			matrixError(w, http.StatusNotFound, "M_NOT_FOUND")
		}
	})

	tests := []struct {
		user status.UserID
		want string
		ok   bool
	}{
		{"@alice:example.org", "Alice", true},
		{"@quiet:example.org", "quiet", true},
		{"@gone:example.org", "", false},
		{"@stranger:example.org", "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.user), func(t *testing.T) {
			name, ok := a.MemberName(t.Context(), testRoom, tt.user)
			assert.Equal(t, tt.want, name)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError("op", fmt.Errorf("wrapped: %w", mautrix.MNotFound)), roster.ErrMessageNotFound)
	assert.ErrorIs(t, mapError("op", fmt.Errorf("wrapped: %w", mautrix.MForbidden)), roster.ErrNotAuthorized)

	other := mapError("op", errors.New("connection reset"))
	assert.NotErrorIs(t, other, roster.ErrMessageNotFound)
	assert.NotErrorIs(t, other, roster.ErrNotAuthorized)
	assert.Contains(t, other.Error(), "op: connection reset")
}
