package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
)

func TestPreview(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/nutriscore/preview", "",
		`{"calories":160,"sugar":"1","fat":10,"fiber":1.2,"protein":"2g"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[PreviewResponse](t, w)
	if resp.Grade != nutriscore.GradeC || resp.Score != 10 {
		t.Errorf("expected C/10, got %s/%d", resp.Grade, resp.Score)
	}
	want := nutriscore.Points{Calories: 2, Fat: 10, Fiber: 1, Protein: 1}
	if resp.Breakdown != want {
		t.Errorf("breakdown = %+v, want %+v", resp.Breakdown, want)
	}
	if resp.Display.Name != "Fair" || resp.Display.Color != "#FFC107" {
		t.Errorf("display = %+v", resp.Display)
	}
}

func TestPreview_EmptyObject(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/nutriscore/preview", "", `{}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if resp := decode[PreviewResponse](t, w); resp.Grade != nutriscore.GradeB || resp.Score != 0 {
		t.Errorf("expected B/0, got %s/%d", resp.Grade, resp.Score)
	}

	expectError(t, api.do(t, http.MethodPost, "/api/nutriscore/preview", "", `[1,2`), http.StatusBadRequest)
}

func TestPreview_NegativeAmountsMatchSave(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/nutriscore/preview", "", `{"calories":100,"fiber":-90,"protein":"-16"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	resp := decode[PreviewResponse](t, w)
	want := nutriscore.Evaluate(nutriscore.NutritionFacts{Calories: 100})
	if resp.Score != want.Score || resp.Grade != want.Grade {
		t.Errorf("preview = %s/%d, want %s/%d", resp.Grade, resp.Score, want.Grade, want.Score)
	}
	if resp.Breakdown.Fiber != 0 || resp.Breakdown.Protein != 0 {
		t.Errorf("negative credits in breakdown %+v", resp.Breakdown)
	}
}

func TestLivePreview(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/nutriscore/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	steps := []struct {
		facts nutriscore.NutritionFacts
		want  nutriscore.Grade
	}{
		{nutriscore.NutritionFacts{}, nutriscore.GradeB},
		{nutriscore.NutritionFacts{Fiber: 9}, nutriscore.GradeA},
		{nutriscore.NutritionFacts{Calories: 880, Sugar: 40.5}, nutriscore.GradeE},
	}

	for _, step := range steps {
		if err := conn.WriteJSON(step.facts); err != nil {
			t.Fatalf("write: %v", err)
		}
		var resp PreviewResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read: %v", err)
		}
		if !resp.Success || resp.Grade != step.want {
			t.Errorf("facts %+v: got %s, want %s", step.facts, resp.Grade, step.want)
		}
		if resp.Score != nutriscore.Evaluate(step.facts).Score {
			t.Errorf("score %d does not match Evaluate", resp.Score)
		}
	}

	// Negative amounts decode to 0, as they do on save.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"fiber":-90}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var negResp PreviewResponse
	if err := conn.ReadJSON(&negResp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if negResp.Grade != nutriscore.GradeB || negResp.Score != 0 {
		t.Errorf("negative fiber: got %s/%d, want B/0", negResp.Grade, negResp.Score)
	}

	// A malformed frame gets an error reply and the connection stays open.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var errResp ErrorResponse
	if err := conn.ReadJSON(&errResp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if errResp.Success || errResp.Error == "" {
		t.Errorf("unexpected error reply %+v", errResp)
	}

	if err := conn.WriteJSON(nutriscore.NutritionFacts{Protein: 1.7}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp PreviewResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Grade != nutriscore.GradeA {
		t.Errorf("got %s, want A", resp.Grade)
	}
}
