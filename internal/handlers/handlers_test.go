package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/intake"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type stubModel struct {
	imageAnswer string
	imageErr    error
	queryAnswer string
	queryErr    error
}

func (s *stubModel) ExtractFromImage(ctx context.Context, image models.Image, instruction string) (string, error) {
	return s.imageAnswer, s.imageErr
}

func (s *stubModel) Query(ctx context.Context, instruction string) (string, error) {
	return s.queryAnswer, s.queryErr
}

func newTestServer(t *testing.T, model *stubModel) (*httptest.Server, *session.Session) {
	t.Helper()
	sess := session.New(model, 1)
	h := New(context.Background(), sess, Options{MaxUploadMB: 1})
	server := httptest.NewServer(h.Routes())
	t.Cleanup(server.Close)
	return server, sess
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func uploadFiles(t *testing.T, url string, files map[string][]byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/api/images", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthcheck(t *testing.T) {
	server, _ := newTestServer(t, &stubModel{})
	resp := do(t, http.MethodGet, server.URL+"/healthcheck", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadAndDeleteImages(t *testing.T) {
	server, sess := newTestServer(t, &stubModel{})

	resp := uploadFiles(t, server.URL, map[string][]byte{"a.png": pngHeader, "b.png": pngHeader})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 2, sess.Queue().Len())

	resp = uploadFiles(t, server.URL, map[string][]byte{"notes.txt": []byte("not an image at all")})
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp = uploadFiles(t, server.URL, map[string][]byte{"big.png": append(pngHeader, make([]byte, 2*1024*1024)...)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 2, sess.Queue().Len())

	resp = do(t, http.MethodGet, server.URL+"/api/images", nil)
	var items []models.ImageItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 2)

	resp = do(t, http.MethodGet, server.URL+"/api/images/"+items[0].ID+"/raw", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp = do(t, http.MethodDelete, server.URL+"/api/images/"+items[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodDelete, server.URL+"/api/images/"+items[0].ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, sess.Queue().Len())
}

func TestUploadByURL(t *testing.T) {
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngHeader)
	}))
	defer images.Close()

	server, sess := newTestServer(t, &stubModel{})
	resp := do(t, http.MethodPost, server.URL+"/api/images", map[string]any{"image_url": images.URL + "/label.png"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, 1, sess.Queue().Len())
	assert.Equal(t, "label.png", sess.Queue().Items()[0].Filename)

	resp = do(t, http.MethodPost, server.URL+"/api/images", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExtractFlow(t *testing.T) {
	server, sess := newTestServer(t, &stubModel{imageAnswer: `{"Chemical Name": "Ethanol", "CAS Number": "64-17-5"}`})

	resp := do(t, http.MethodPost, server.URL+"/api/extract", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "no images yet")

	sess.AddImages(intake.Payload{Filename: "a.png", Data: pngHeader, MediaType: "image/png"})
	resp = do(t, http.MethodPost, server.URL+"/api/extract", map[string]any{"prompt": ""})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		return sess.Mode() == session.Idle && sess.Store().Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp = do(t, http.MethodGet, server.URL+"/api/state", nil)
	state := decode(t, resp)
	assert.Equal(t, "idle", state["mode"])
	assert.Equal(t, []any{"Chemical Name", "CAS Number"}, state["columns"])
	records := state["records"].([]any)
	require.Len(t, records, 1)
	assert.Equal(t, "Ethanol", records[0].(map[string]any)["Chemical Name"])
	assert.NotContains(t, records[0].(map[string]any), "SourceImageID")
}

func TestExtractFailureNotices(t *testing.T) {
	server, sess := newTestServer(t, &stubModel{imageErr: errors.New("model unavailable")})
	sess.AddImages(intake.Payload{Filename: "a.png", Data: pngHeader, MediaType: "image/png"})

	resp := do(t, http.MethodPost, server.URL+"/api/extract", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Eventually(t, func() bool { return sess.Mode() == session.Idle }, 2*time.Second, 10*time.Millisecond)

	state := decode(t, do(t, http.MethodGet, server.URL+"/api/state", nil))
	assert.Equal(t, []any{"Error extracting data from image 1. Please try again."}, state["notices"])

	state = decode(t, do(t, http.MethodGet, server.URL+"/api/state", nil))
	assert.Empty(t, state["notices"])
}

func TestRecordEditing(t *testing.T) {
	server, sess := newTestServer(t, &stubModel{})

	resp := do(t, http.MethodPost, server.URL+"/api/records/blank", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodPost, server.URL+"/api/records/3/edit", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = do(t, http.MethodPost, server.URL+"/api/records/abc/edit", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPatch, server.URL+"/api/edit", map[string]string{"Formula": "NaCl"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "no edit in progress")

	resp = do(t, http.MethodPost, server.URL+"/api/records/0/edit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode(t, resp)
	assert.Equal(t, "editing", state["mode"])

	resp = do(t, http.MethodPatch, server.URL+"/api/edit", map[string]string{"Formula": "NaCl", "Hazard": "none"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, server.URL+"/api/edit/commit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["committed"])

	r, _ := sess.Store().At(0)
	assert.Equal(t, "NaCl", r.Value(models.FieldFormula))
	assert.Equal(t, "none", r.Value("Hazard"))

	resp = do(t, http.MethodPost, server.URL+"/api/records/0/edit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	do(t, http.MethodPatch, server.URL+"/api/edit", map[string]string{"Formula": "KCl"})
	resp = do(t, http.MethodPost, server.URL+"/api/edit/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	r, _ = sess.Store().At(0)
	assert.Equal(t, "NaCl", r.Value(models.FieldFormula))

	resp = do(t, http.MethodDelete, server.URL+"/api/records/7", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "out-of-range removal is a no-op")
	assert.Equal(t, 1, sess.Store().Len())
	resp = do(t, http.MethodDelete, server.URL+"/api/records/0", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, sess.Store().Len())
}

func TestEditAddsFieldsInBodyOrder(t *testing.T) {
	for range 20 {
		server, sess := newTestServer(t, &stubModel{})
		require.Equal(t, http.StatusCreated, do(t, http.MethodPost, server.URL+"/api/records/blank", nil).StatusCode)
		require.Equal(t, http.StatusOK, do(t, http.MethodPost, server.URL+"/api/records/0/edit", nil).StatusCode)

		resp := do(t, http.MethodPatch, server.URL+"/api/edit",
			json.RawMessage(`{"Zeta": "1", "Alpha": "2", "Mid": "3", "Zeta": "4"}`))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, http.StatusOK, do(t, http.MethodPost, server.URL+"/api/edit/commit", nil).StatusCode)

		want := append(append([]string{}, models.CanonicalFields...), "Zeta", "Alpha", "Mid")
		require.Equal(t, want, sess.Store().Columns())
		r, _ := sess.Store().At(0)
		assert.Equal(t, "4", r.Value("Zeta"), "a repeated key keeps its last value")
	}
}

func TestEditRejectsInvalidBodyWithoutApplying(t *testing.T) {
	server, sess := newTestServer(t, &stubModel{})
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, server.URL+"/api/records/blank", nil).StatusCode)
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, server.URL+"/api/records/0/edit", nil).StatusCode)

	tests := []struct {
		name string
		body string
	}{
		{"empty field name after a valid one", `{"Formula": "NaCl", "": "x"}`},
		{"non-string value", `{"Formula": "NaCl", "Molecular Weight": 58.44}`},
		{"not an object", `["Formula", "NaCl"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPatch, server.URL+"/api/edit", json.RawMessage(tt.body))
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			_, scratch, ok := sess.Store().Editing()
			require.True(t, ok)
			assert.Equal(t, "", scratch.Value(models.FieldFormula), "nothing was applied")
		})
	}
}

func TestLookupNotFoundAndManualAdd(t *testing.T) {
	server, sess := newTestServer(t, &stubModel{queryAnswer: "Sorry, I don't know that one."})

	resp := do(t, http.MethodPost, server.URL+"/api/lookup", map[string]string{"query": "64-17-5", "by": "cas"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "not_found", body["error"])
	assert.Equal(t, "64-17-5", body["query"])
	assert.Equal(t, 0, sess.Store().Len())

	resp = do(t, http.MethodPost, server.URL+"/api/lookup/manual", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, 1, sess.Store().Len())
	r, _ := sess.Store().At(0)
	assert.Equal(t, "64-17-5", r.Value(models.FieldChemicalName))

	resp = do(t, http.MethodPost, server.URL+"/api/lookup/manual", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodPost, server.URL+"/api/lookup", map[string]string{"query": "x", "by": "smiles"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = do(t, http.MethodPost, server.URL+"/api/lookup", map[string]string{"query": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLookupFoundAndDismiss(t *testing.T) {
	model := &stubModel{queryAnswer: `{"Chemical Name": "Ethanol", "CAS Number": "64-17-5"}`}
	server, sess := newTestServer(t, model)

	resp := do(t, http.MethodPost, server.URL+"/api/lookup", map[string]string{"query": "ethanol", "by": "name"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, sess.Store().Len())

	model.queryErr = errors.New("unreachable")
	resp = do(t, http.MethodPost, server.URL+"/api/lookup", map[string]string{"query": "ethanol"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, session.AwaitingManualAdd, sess.Mode())

	resp = do(t, http.MethodDelete, server.URL+"/api/lookup/pending", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, session.Idle, sess.Mode())
	assert.Equal(t, 1, sess.Store().Len())
}

func TestExport(t *testing.T) {
	server, sess := newTestServer(t, &stubModel{})

	resp := do(t, http.MethodGet, server.URL+"/api/export.xlsx", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "nothing to export")

	sess.Store().Append(models.NewRecord(models.Field{Name: "Chemical Name", Value: "Ethanol"}))

	resp = do(t, http.MethodGet, server.URL+"/api/export.xlsx", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "chemical_labels_data.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Chemical Data")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Chemical Name"}, {"Ethanol"}}, rows)

	resp = do(t, http.MethodGet, server.URL+"/api/export.parquet", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasSuffix(resp.Header.Get("Content-Disposition"), `chemical_labels_data.parquet"`))
}

func TestClear(t *testing.T) {
	server, sess := newTestServer(t, &stubModel{})
	sess.AddImages(intake.Payload{Filename: "a.png", Data: pngHeader, MediaType: "image/png"})
	sess.AppendBlank()

	resp := do(t, http.MethodPost, server.URL+"/api/clear", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode(t, resp)
	assert.Empty(t, state["images"])
	assert.Empty(t, state["records"])
	assert.Equal(t, 0, sess.Queue().Len())
}
