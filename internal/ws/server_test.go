package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymzhao891/medichat/internal/adapter/analysis"
	"github.com/ymzhao891/medichat/internal/config"
	"github.com/ymzhao891/medichat/internal/domain"
	"github.com/ymzhao891/medichat/internal/hub"
	"github.com/ymzhao891/medichat/internal/identity"
	"github.com/ymzhao891/medichat/internal/protocol"
	"github.com/ymzhao891/medichat/internal/service"
	"github.com/ymzhao891/medichat/tests/helpers"
)

type wsEnv struct {
	server *Server
	hub    *hub.Hub
	svc    *service.Service
}

func newWSEnv(t *testing.T) *wsEnv {
	t.Helper()

	db := helpers.NewTestSQLiteStore(t)
	h := hub.NewHub()
	go h.Run()

	ctx := context.Background()
	require.NoError(t, db.CreatePatient(ctx, &domain.Patient{
		PatientID: "p1", Username: "alice", CreatedAt: time.Now(),
	}))
	require.NoError(t, db.CreateClinician(ctx, &domain.Clinician{
		ClinicianID: "c1", Name: "Dr. Bob", IsAvailable: true, CreatedAt: time.Now(),
	}))

	svc := service.New(db, h, analysis.NewStatic(), time.Second)
	cfg := &config.Config{
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		MaxMessageSize: 65536,
	}
	verifier := identity.NewJWTVerifier("test-secret")
	return &wsEnv{
		server: NewServer(cfg, h, svc, verifier),
		hub:    h,
		svc:    svc,
	}
}

func (env *wsEnv) connect(t *testing.T, userID string) *hub.Connection {
	t.Helper()
	conn := env.hub.NewConnection(nil, userID)
	before := env.hub.ConnectionCount()
	env.hub.Register(conn)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if env.hub.ConnectionCount() > before {
			return conn
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("connection never registered")
	return nil
}

func (env *wsEnv) openSession(t *testing.T) string {
	t.Helper()
	detail, err := env.svc.StartSession(context.Background(), &domain.StartSessionRequest{
		PatientID: "p1", ClinicianID: "c1",
	})
	require.NoError(t, err)
	return detail.SessionID
}

func recvFrame(t *testing.T, conn *hub.Connection) map[string]interface{} {
	t.Helper()
	select {
	case data := <-conn.Send:
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func TestHandleInvalidFrame(t *testing.T) {
	env := newWSEnv(t)
	conn := env.connect(t, "p1")

	env.server.handleMessage(conn, []byte("{not json"))
	frame := recvFrame(t, conn)
	assert.Equal(t, protocol.TypeError, frame["type"])
	assert.Equal(t, protocol.ErrorCodeInvalidMessage, frame["code"])

	env.server.handleMessage(conn, []byte(`{"type":"teleport"}`))
	frame = recvFrame(t, conn)
	assert.Equal(t, protocol.ErrorCodeInvalidMessage, frame["code"])
}

func TestHandleJoinRoom(t *testing.T) {
	env := newWSEnv(t)
	conn := env.connect(t, "p1")
	sessionID := env.openSession(t)

	env.server.handleMessage(conn, []byte(`{"type":"join_room","session_id":"ghost"}`))
	frame := recvFrame(t, conn)
	assert.Equal(t, protocol.TypeError, frame["type"])
	assert.Equal(t, protocol.ErrorCodeNotFound, frame["code"])

	env.server.handleMessage(conn, []byte(fmt.Sprintf(`{"type":"join_room","session_id":%q}`, sessionID)))
	frame = recvFrame(t, conn)
	assert.Equal(t, protocol.TypeJoined, frame["type"])
	assert.Equal(t, 1, env.hub.RoomSize(hub.SessionRoom(sessionID)))
}

func TestHandleJoinClosedSession(t *testing.T) {
	env := newWSEnv(t)
	conn := env.connect(t, "p1")
	sessionID := env.openSession(t)

	_, err := env.svc.EndSession(context.Background(), sessionID)
	require.NoError(t, err)

	env.server.handleMessage(conn, []byte(fmt.Sprintf(`{"type":"join_room","session_id":%q}`, sessionID)))
	frame := recvFrame(t, conn)
	assert.Equal(t, protocol.TypeError, frame["type"])
	assert.Equal(t, protocol.ErrorCodeSessionClosed, frame["code"])
}

func TestSendMessageOverSocket(t *testing.T) {
	env := newWSEnv(t)
	// Open the session first so the clinician's chat_request notification
	// is not queued on the connection under test.
	sessionID := env.openSession(t)
	patientConn := env.connect(t, "p1")
	clinicianConn := env.connect(t, "c1")

	join := fmt.Sprintf(`{"type":"join_room","session_id":%q}`, sessionID)
	env.server.handleMessage(patientConn, []byte(join))
	recvFrame(t, patientConn)
	env.server.handleMessage(clinicianConn, []byte(join))
	recvFrame(t, clinicianConn)

	send := fmt.Sprintf(`{"type":"send_message","session_id":%q,"sender_id":"p1","sender_role":"patient","content":"hello"}`, sessionID)
	env.server.handleMessage(patientConn, []byte(send))

	for _, conn := range []*hub.Connection{patientConn, clinicianConn} {
		frame := recvFrame(t, conn)
		assert.Equal(t, protocol.TypeReceiveMessage, frame["type"])
		msg := frame["message"].(map[string]interface{})
		assert.Equal(t, "hello", msg["content"])
		assert.Equal(t, float64(1), msg["seq"])
	}
}

func TestEndChatOverSocket(t *testing.T) {
	env := newWSEnv(t)
	conn := env.connect(t, "p1")
	sessionID := env.openSession(t)

	env.server.handleMessage(conn, []byte(fmt.Sprintf(`{"type":"join_room","session_id":%q}`, sessionID)))
	recvFrame(t, conn)

	env.server.handleMessage(conn, []byte(fmt.Sprintf(`{"type":"end_chat","session_id":%q}`, sessionID)))
	frame := recvFrame(t, conn)
	assert.Equal(t, protocol.TypeChatEnded, frame["type"])

	// Sending into the closed session is rejected.
	send := fmt.Sprintf(`{"type":"send_message","session_id":%q,"sender_id":"p1","sender_role":"patient","content":"late"}`, sessionID)
	env.server.handleMessage(conn, []byte(send))
	frame = recvFrame(t, conn)
	assert.Equal(t, protocol.TypeError, frame["type"])
	assert.Equal(t, protocol.ErrorCodeSessionClosed, frame["code"])
}

func TestLeaveRoom(t *testing.T) {
	env := newWSEnv(t)
	conn := env.connect(t, "p1")
	sessionID := env.openSession(t)

	env.server.handleMessage(conn, []byte(fmt.Sprintf(`{"type":"join_room","session_id":%q}`, sessionID)))
	recvFrame(t, conn)

	env.server.handleMessage(conn, []byte(fmt.Sprintf(`{"type":"leave_room","session_id":%q}`, sessionID)))
	frame := recvFrame(t, conn)
	assert.Equal(t, protocol.TypeLeft, frame["type"])
	assert.Equal(t, 0, env.hub.RoomSize(hub.SessionRoom(sessionID)))
}
