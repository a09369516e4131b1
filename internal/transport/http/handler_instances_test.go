package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"botdash/internal/store"
)

func doJSON(t *testing.T, h http.Handler, method, path, userID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	if role != "" {
		req.Header.Set(HeaderUserRole, role)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	code, _ := body["error"].(string)
	return code
}

func TestAPIRequiresIdentity(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.svc, env.users, env.registry, nil)

	w := doJSON(t, router, http.MethodGet, "/api/bot-instances", "", "", nil)
	if w.Code != http.StatusUnauthorized || decodeError(t, w) != "unauthorized" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodGet, "/healthz", "", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", w.Code)
	}
}

func TestInstanceLifecycle(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.svc, env.users, env.registry, nil)

	w := doJSON(t, router, http.MethodPost, "/api/bots", "alice", "user", map[string]any{"name": "tipster", "type": "TRADING"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-admin create bot status=%d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/bots", "root", "admin", map[string]any{"name": "tipster", "type": "TRADING"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create bot status=%d body=%s", w.Code, w.Body.String())
	}
	var bot store.Bot
	_ = json.Unmarshal(w.Body.Bytes(), &bot)

	w = doJSON(t, router, http.MethodPost, "/api/bot-instances", "alice", "", map[string]any{"botId": bot.ID, "name": "main"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create instance status=%d body=%s", w.Code, w.Body.String())
	}
	var in store.BotInstance
	_ = json.Unmarshal(w.Body.Bytes(), &in)
	if in.UserID != "alice" || in.Status != store.InstanceStopped {
		t.Fatalf("instance = %+v", in)
	}

	w = doJSON(t, router, http.MethodGet, "/api/bot-instances/"+in.ID, "bob", "", nil)
	if w.Code != http.StatusNotFound || decodeError(t, w) != "instance_not_found" {
		t.Fatalf("foreign get status=%d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPatch, "/api/bot-instances/"+in.ID, "alice", "", map[string]any{"status": "RUNNING"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status=%d body=%s", w.Code, w.Body.String())
	}
	if len(env.control.calls) != 1 || env.control.calls[0] != "start:"+in.ID {
		t.Fatalf("control calls = %v", env.control.calls)
	}

	w = doJSON(t, router, http.MethodGet, "/api/bot-instances", "alice", "", nil)
	var list []store.BotInstance
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if w.Code != http.StatusOK || len(list) != 1 || list[0].Status != store.InstanceRunning {
		t.Fatalf("list status=%d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/admin/bot-instances", "alice", "", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("admin list as user status=%d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/admin/bot-instances", "root", "admin", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin list status=%d", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/bot-instances/"+in.ID, "alice", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "deleted") {
		t.Fatalf("delete status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestPatchReportsControlFailure(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.svc, env.users, env.registry, nil)
	env.repo.bots = []store.Bot{{ID: "b1", Name: "tipster", Type: "CHAT"}}
	in, _ := env.repo.CreateInstance(context.Background(), "alice", "b1", "main", nil)
	env.control.err = errors.New("connection refused")

	w := doJSON(t, router, http.MethodPatch, "/api/bot-instances/"+in.ID, "alice", "", map[string]any{"status": "stopped"})
	if w.Code != http.StatusBadGateway || decodeError(t, w) != "control_failed" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodPatch, "/api/bot-instances/"+in.ID, "alice", "", map[string]any{"status": "sideways"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad status code=%d", w.Code)
	}
}

func TestBetHistoryEndpoint(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.svc, env.users, env.registry, nil)
	env.repo.bots = []store.Bot{{ID: "b1", Name: "tipster", Type: "CHAT"}}
	in, _ := env.repo.CreateInstance(context.Background(), "alice", "b1", "main", nil)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		env.repo.bets[in.ID] = append(env.repo.bets[in.ID], store.Bet{
			ID: fmt.Sprintf("bet%d", i), BotInstanceID: in.ID, TipID: "t", Tip: "x", Stake: 10, Status: "SUCCESS", CreatedAt: created,
		})
	}

	w := doJSON(t, router, http.MethodGet, "/api/bet-history/"+in.ID+"?limit=2", "alice", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var rows []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 || rows[0]["_id"] != "bet0" || rows[0]["stake"].(float64) != 10 || rows[0]["botInstanceId"] != in.ID {
		t.Fatalf("rows = %v", rows)
	}

	w = doJSON(t, router, http.MethodGet, "/api/bet-history/"+in.ID, "mallory", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign status=%d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/bet-history/"+in.ID, "root", "admin", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin status=%d", w.Code)
	}
}
