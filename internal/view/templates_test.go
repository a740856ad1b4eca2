package view

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderErrorPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/error.html", TemplateData{
		Title: "Not found",
		Data:  map[string]any{"Status": 404, "Message": "Page not found."},
	})
	require.NoError(t, err)
	assert.Contains(t, rec.Body.String(), "Page not found.")
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestDateHelpers(t *testing.T) {
	d := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Mar 09, 2024", displayDate(d))
	assert.Equal(t, "2024-03-09", inputDate(&d))
	var missing *time.Time
	assert.Empty(t, displayDate(missing))
	assert.Empty(t, inputDate(time.Time{}))
	assert.Empty(t, inputDate("2024-03-09"))
}

func TestIDHelpers(t *testing.T) {
	id := int64(5)
	assert.True(t, sameID(int64(5), &id))
	assert.False(t, sameID(int64(4), &id))
	var none *int64
	assert.False(t, sameID(int64(0), none))
	assert.Equal(t, "5", idValue(&id))
	assert.Empty(t, idValue(none))
}

func TestNumberFormatting(t *testing.T) {
	var buf bytes.Buffer
	tpl := `{{number .N}} {{percent .P}} {{bytes .B}}`
	engine, err := NewEngine()
	require.NoError(t, err)
	tmpl, err := engine.templates.Clone()
	require.NoError(t, err)
	_, err = tmpl.New("numbers").Parse(tpl)
	require.NoError(t, err)
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "numbers", map[string]any{"N": 12345, "P": 66.66, "B": int64(2048)}))
	assert.Equal(t, "12,345 66.7% 2.0 KB", buf.String())
}
