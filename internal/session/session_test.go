package session

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"popmap/internal/carto"
	"popmap/internal/population"
)

type msg struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type rawMsg struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func square(x, y float64) orb.MultiPolygon {
	return orb.MultiPolygon{{{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}}}
}

func testHolder() *population.Holder {
	deps := []population.Departement{
		{
			ID: "75", Nom: "Paris",
			Ensemble: population.NewTranche(nil, nil, nil, nil, nil, population.Int(2133111)),
			Hommes:   population.NewTranche(nil, nil, nil, nil, nil, population.Int(1004505)),
			Femmes:   population.NewTranche(nil, nil, nil, nil, nil, population.Int(1128606)),
		},
		{ID: "01", Nom: "Ain", Ensemble: population.NewTranche(nil, nil, nil, nil, nil, population.Int(650000))},
	}
	h := &population.Holder{}
	h.Set(population.NewDataset(deps, "test"))
	return h
}

func testAtlas() *carto.Atlas {
	return carto.NewAtlas([]carto.Feature{
		{RawCode: "75", Name: "Paris", Geometry: square(2, 48)},
		{RawCode: float64(1), Name: "Ain", Geometry: square(5, 46)},
		{RawCode: "2A", Name: "Corse-du-Sud", Geometry: square(8.5, 41.5)},
	}, time.Minute)
}

func dial(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil：跳过其它类型的消息，直到 match 返回 true
func readUntil(t *testing.T, conn *websocket.Conn, typ string, match func(msg) bool) msg {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var m msg
		require.NoError(t, conn.ReadJSON(&m))
		if m.Type == typ && (match == nil || match(m)) {
			return m
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	conn := dial(t, NewHandler(testHolder(), testAtlas(), ""))

	hello := readUntil(t, conn, OutHello, nil)
	require.NotEmpty(t, hello.Data["session"])

	first := readUntil(t, conn, OutSelection, nil)
	require.Equal(t, "init", first.Data["origin"])
	require.Nil(t, first.Data["selected"])
	displayed := first.Data["displayed"].(map[string]any)
	require.Equal(t, "FR", displayed["id"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "viewport", "width": 800, "height": 900}))
	layer := readUntil(t, conn, OutLayer, nil)
	inserts := layer.Data["insert"].([]any)
	require.Len(t, inserts, 3)
	require.Equal(t, "1", inserts[0].(map[string]any)["key"])
	require.Equal(t, "2A", inserts[1].(map[string]any)["key"])
	require.Equal(t, "75", inserts[2].(map[string]any)["key"])
	require.Equal(t, "#ffffffcc", layer.Data["style"].(map[string]any)["stroke"])
	palette := layer.Data["palette"].(map[string]any)
	require.Equal(t, "#00ff00", palette["fill_highlight"])
	require.Equal(t, "#f59e42", palette["stroke_hover"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "click", "code": "75"}))
	sel := readUntil(t, conn, OutSelection, nil)
	require.Equal(t, "map", sel.Data["origin"])
	require.Equal(t, "75", sel.Data["selected"].(map[string]any)["id"])
	charts := sel.Data["charts"].(map[string]any)
	require.Len(t, charts["pie"].([]any), 2)

	fr := readUntil(t, conn, OutFrame, func(m msg) bool { return m.Data["animating"] == false })
	require.Equal(t, "zoomed", fr.Data["state"])
	require.Equal(t, "75", fr.Data["focus"])
	tr := fr.Data["transform"].(map[string]any)
	require.InDelta(t, 8.0, tr["k"], 1e-9)
	require.InDelta(t, 1.0/8, fr.Data["stroke_width"], 1e-9)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "select", "id": ""}))
	sel = readUntil(t, conn, OutSelection, nil)
	require.Equal(t, "search", sel.Data["origin"])
	require.Nil(t, sel.Data["selected"])
	fr = readUntil(t, conn, OutFrame, func(m msg) bool { return m.Data["animating"] == false })
	require.Equal(t, "idle", fr.Data["state"])
}

func TestSessionClickUnmatchedStillZooms(t *testing.T) {
	conn := dial(t, NewHandler(testHolder(), testAtlas(), ""))
	readUntil(t, conn, OutSelection, nil)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "viewport", "width": 800, "height": 900}))
	readUntil(t, conn, OutLayer, nil)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "click", "code": "2A"}))
	fr := readUntil(t, conn, OutFrame, func(m msg) bool { return m.Data["state"] == "zoomed" && m.Data["animating"] == false })
	require.Equal(t, "2A", fr.Data["focus"])
}

func TestSessionAddressesCodelessRegionByKey(t *testing.T) {
	atlas := carto.NewAtlas([]carto.Feature{
		{RawCode: "75", Name: "Paris", Geometry: square(2, 48)},
		{RawCode: nil, Name: "Sans code", Geometry: square(5, 46)},
	}, time.Minute)
	conn := dial(t, NewHandler(testHolder(), atlas, ""))
	readUntil(t, conn, OutSelection, nil)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "viewport", "width": 800, "height": 900}))
	layer := readUntil(t, conn, OutLayer, nil)

	var key string
	for _, r := range layer.Data["insert"].([]any) {
		if rp := r.(map[string]any); rp["name"] == "Sans code" {
			require.Equal(t, "NaN", rp["code"])
			key = rp["key"].(string)
		}
	}
	require.Equal(t, "~|Sans code", key)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "hover", "key": key}))
	tt := readUntil(t, conn, OutTooltip, nil)
	require.Equal(t, "Sans code", tt.Data["name"])
	require.Equal(t, true, tt.Data["no_data"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "click", "key": key}))
	fr := readUntil(t, conn, OutFrame, func(m msg) bool { return m.Data["state"] == "zoomed" && m.Data["animating"] == false })
	require.Equal(t, "NaN", fr.Data["focus"])
}

func TestSessionHoverAndSearch(t *testing.T) {
	conn := dial(t, NewHandler(testHolder(), testAtlas(), ""))
	readUntil(t, conn, OutSelection, nil)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "viewport", "width": 800, "height": 900}))
	readUntil(t, conn, OutLayer, nil)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "hover", "code": 1}))
	tt := readUntil(t, conn, OutTooltip, nil)
	require.Equal(t, "Ain", tt.Data["name"])
	require.Equal(t, false, tt.Data["no_data"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "leave", "code": "01"}))
	var cleared rawMsg
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for cleared.Type != OutTooltip {
		require.NoError(t, conn.ReadJSON(&cleared))
	}
	require.Nil(t, cleared.Data)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "search", "q": "ain"}))
	var res rawMsg
	for res.Type != OutSearch {
		require.NoError(t, conn.ReadJSON(&res))
	}
	opts := res.Data.([]any)
	require.Len(t, opts, 1)
	require.Equal(t, "Ain", opts[0].(map[string]any)["nom"])
}

func TestSessionUnknownMessage(t *testing.T) {
	conn := dial(t, NewHandler(testHolder(), testAtlas(), ""))
	readUntil(t, conn, OutHello, nil)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "explode"}))
	e := readUntil(t, conn, OutError, nil)
	require.Contains(t, e.Data["detail"], "explode")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	e = readUntil(t, conn, OutError, nil)
	require.Contains(t, e.Data["detail"], "invalid message")
}

func TestSessionLoading(t *testing.T) {
	h := &population.Holder{}
	hd := NewHandler(h, testAtlas(), "")
	hd.IdleInterval = 10 * time.Millisecond
	conn := dial(t, hd)

	l := readUntil(t, conn, OutLoading, nil)
	require.Equal(t, false, l.Data["stats"])
	require.Equal(t, true, l.Data["geometry"])

	h.Set(testHolder().Current())
	sel := readUntil(t, conn, OutSelection, nil)
	require.Equal(t, "init", sel.Data["origin"])
}

func TestCheckOrigin(t *testing.T) {
	h := NewHandler(testHolder(), nil, "http://localhost:3000")
	r := httptest.NewRequest("GET", "http://api.example/session", nil)
	require.True(t, h.checkOrigin(r))
	r.Header.Set("Origin", "http://localhost:3000")
	require.True(t, h.checkOrigin(r))
	r.Header.Set("Origin", "http://api.example")
	require.True(t, h.checkOrigin(r))
	r.Header.Set("Origin", "http://evil.example")
	require.False(t, h.checkOrigin(r))
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, "75", codeOf("75"))
	require.Equal(t, "1", codeOf(float64(1)))
	require.Equal(t, "", codeOf(nil))
}
