package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withRegistry(t *testing.T) {
	t.Helper()
	InitRegistry()
	t.Cleanup(func() { Registry = nil })
}

func TestGameCollector_Records(t *testing.T) {
	withRegistry(t)
	c := NewGameCollector()
	require.NoError(t, c.Register())

	c.RecordTurn(1)
	c.RecordTurn(1)
	c.RecordTurn(2)
	c.RecordGameFinished(1, "lost")
	c.SetActiveSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.turnsTotal.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.turnsTotal.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.gamesFinished.WithLabelValues("1", "lost")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.sessionsActive))
}

func TestGameCollector_RegisterWithoutRegistry(t *testing.T) {
	Registry = nil

	assert.NoError(t, NewGameCollector().Register())
	assert.False(t, IsEnabled())
}

func TestGameCollector_NilIsNoop(t *testing.T) {
	var c *GameCollector

	assert.NotPanics(t, func() {
		c.RecordTurn(1)
		c.RecordGameFinished(1, "won")
		c.SetActiveSessions(0)
	})
}

func TestHandler_ServesRegistry(t *testing.T) {
	withRegistry(t)
	c := NewGameCollector()
	require.NoError(t, c.Register())
	c.RecordTurn(2)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fabline_game_turns_confirmed_total{level="2"} 1`)
}
