package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"creditos/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", time.Second)
	require.NoError(t, err)
	return c
}

var fields = core.CreditFields{Cliente: "Ana", Monto: 1500.5, TasaInteres: 12.5, Plazo: 24, FechaOtorgamiento: "2024-01-15"}

func TestClient_List(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/creditos", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":2,"cliente":"B","monto":5,"tasa_interes":1,"plazo":3,"fecha_otorgamiento":"2024-01-01"},
			{"id":"x7","cliente":"A","monto":1,"tasa_interes":1,"plazo":1,"fecha_otorgamiento":"2024-01-02"}]`))
	})

	credits, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, credits, 2)
	assert.Equal(t, core.CreditID("2"), credits[0].ID, "server order preserved")
	assert.Equal(t, core.CreditID("x7"), credits[1].ID)
}

func TestClient_ListFailures(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) })
		_, err := c.List(context.Background())
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	})
	t.Run("undecodable body", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html>")) })
		_, err := c.List(context.Background())
		assert.ErrorContains(t, err, "decode response")
	})
	t.Run("timeout", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
		c.timeout = 50 * time.Millisecond
		_, err := c.List(context.Background())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestClient_ListCoalesces(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		_, _ = w.Write([]byte(`[]`))
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			credits, err := c.List(context.Background())
			assert.NoError(t, err)
			assert.NotNil(t, credits)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ListAfterWriteSeesWrite(t *testing.T) {
	var (
		mu      sync.Mutex
		stored  []core.Credit
		gets    int32
		started = make(chan struct{})
		release = make(chan struct{})
	)
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			mu.Lock()
			snapshot := append([]core.Credit{}, stored...)
			mu.Unlock()
			if atomic.AddInt32(&gets, 1) == 1 {
				close(started)
				<-release
			}
			_ = json.NewEncoder(w).Encode(snapshot)
		case http.MethodPost:
			mu.Lock()
			stored = append(stored, core.Credit{ID: "1", CreditFields: fields})
			mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 1}`))
		}
	})

	stale := make(chan []core.Credit, 1)
	go func() {
		credits, err := c.List(context.Background())
		assert.NoError(t, err)
		stale <- credits
	}()
	<-started

	_, err := c.Create(context.Background(), fields)
	require.NoError(t, err)

	fresh := make(chan []core.Credit, 1)
	go func() {
		credits, err := c.List(context.Background())
		assert.NoError(t, err)
		fresh <- credits
	}()

	select {
	case credits := <-fresh:
		assert.Len(t, credits, 1, "list after create must include the new credit")
	case <-time.After(500 * time.Millisecond):
		t.Error("list after create joined the request started before it")
	}
	close(release)

	assert.Empty(t, <-stale)
	if len(fresh) > 0 {
		assert.Len(t, <-fresh, 1)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&gets))
}

func TestClient_Create(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var got core.CreditFields
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, fields, got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 9}`))
	})

	credit, err := c.Create(context.Background(), fields)
	require.NoError(t, err)
	assert.Equal(t, core.CreditID("9"), credit.ID)
	assert.Equal(t, fields, credit.CreditFields)
}

func TestClient_WriteRejectionsCarryFixedMessages(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Faltan datos obligatorios"}`))
	})

	_, err := c.Create(context.Background(), fields)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Faltan datos obligatorios", se.Detail)
	assert.Equal(t, MsgCreateFailed, UserMessage(err, "x"))

	_, err = c.Update(context.Background(), "3", fields)
	assert.Equal(t, MsgUpdateFailed, UserMessage(err, "x"))

	assert.Equal(t, "fallback", UserMessage(errors.New("dial tcp: refused"), "fallback"))
}

func TestClient_UpdateAndDelete(t *testing.T) {
	var seen []string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})

	credit, err := c.Update(context.Background(), "3", fields)
	require.NoError(t, err)
	assert.Equal(t, core.CreditID("3"), credit.ID, "id unchanged")

	require.NoError(t, c.Delete(context.Background(), "3"))
	assert.Equal(t, []string{"PUT /api/creditos/3", "DELETE /api/creditos/3"}, seen)
}

func TestClient_Find(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"cliente":"A","monto":1,"tasa_interes":1,"plazo":1,"fecha_otorgamiento":"2024-01-01"}]`))
	})

	credit, err := c.Find(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "A", credit.Cliente)

	_, err = c.Find(context.Background(), "2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New("not a url", time.Second)
	assert.Error(t, err)
}
