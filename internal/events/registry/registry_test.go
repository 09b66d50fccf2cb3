package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	failSend bool
	closed   bool
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.New("send failed")
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func TestConnectDisconnect(t *testing.T) {
	r := New()

	conn := &fakeConn{}
	session := r.Connect(Identity{UserID: 100, Role: domain.RoleCustomer}, conn)
	require.NotNil(t, session)
	assert.True(t, r.IsOnline(100))

	r.Disconnect(session)
	assert.False(t, r.IsOnline(100))

	// повторный Disconnect безопасен
	r.Disconnect(session)
}

func TestMultipleSessionsPerUser(t *testing.T) {
	r := New()

	first := r.Connect(Identity{UserID: 100, Role: domain.RoleCustomer}, &fakeConn{})
	second := r.Connect(Identity{UserID: 100, Role: domain.RoleCustomer}, &fakeConn{})

	r.Disconnect(first)
	assert.True(t, r.IsOnline(100), "пользователь онлайн, пока жива хотя бы одна сессия")

	r.Disconnect(second)
	assert.False(t, r.IsOnline(100))
}

func TestBroadcast_RoomTargeting(t *testing.T) {
	r := New()

	inRoom := &fakeConn{}
	outside := &fakeConn{}
	sessionIn := r.Connect(Identity{UserID: 100, Role: domain.RoleCustomer}, inRoom)
	r.Connect(Identity{UserID: 200, Role: domain.RoleCustomer}, outside)

	room := AppointmentRoom(1)
	r.Join(sessionIn, room)

	delivered := r.Broadcast(room, []byte("hello"))
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, inRoom.count())
	assert.Equal(t, 0, outside.count())
}

func TestLeave_StopsDelivery(t *testing.T) {
	r := New()

	conn := &fakeConn{}
	session := r.Connect(Identity{UserID: 7, Role: domain.RoleTechnician}, conn)
	room := RoleRoom(domain.RoleTechnician)
	r.Join(session, room)

	require.Equal(t, 1, r.Broadcast(room, []byte("a")))

	r.Leave(session, room)
	assert.Equal(t, 0, r.Broadcast(room, []byte("b")))
	assert.Equal(t, 1, conn.count())
}

func TestDisconnect_CleansRooms(t *testing.T) {
	r := New()

	conn := &fakeConn{}
	session := r.Connect(Identity{UserID: 2, Role: domain.RoleStaff}, conn)
	r.Join(session, RoleRoom(domain.RoleStaff))
	r.Join(session, AppointmentRoom(1))

	r.Disconnect(session)

	assert.Equal(t, 0, r.Broadcast(RoleRoom(domain.RoleStaff), []byte("a")))
	assert.Equal(t, 0, r.Broadcast(AppointmentRoom(1), []byte("b")))
}

func TestUnicast(t *testing.T) {
	r := New()

	first := &fakeConn{}
	second := &fakeConn{}
	r.Connect(Identity{UserID: 100, Role: domain.RoleCustomer}, first)
	r.Connect(Identity{UserID: 100, Role: domain.RoleCustomer}, second)

	// доставка во все сессии пользователя
	assert.Equal(t, 2, r.Unicast(100, []byte("hi")))
	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())

	// офлайн-пользователь: ноль доставок, без ошибки
	assert.Equal(t, 0, r.Unicast(999, []byte("hi")))
}

func TestBroadcast_SendFailureNotCounted(t *testing.T) {
	r := New()

	good := &fakeConn{}
	bad := &fakeConn{failSend: true}
	sessionGood := r.Connect(Identity{UserID: 1, Role: domain.RoleStaff}, good)
	sessionBad := r.Connect(Identity{UserID: 2, Role: domain.RoleStaff}, bad)

	room := RoleRoom(domain.RoleStaff)
	r.Join(sessionGood, room)
	r.Join(sessionBad, room)

	assert.Equal(t, 1, r.Broadcast(room, []byte("a")))
}

func TestOnline_Snapshot(t *testing.T) {
	r := New()

	r.Connect(Identity{UserID: 100, Role: domain.RoleCustomer}, &fakeConn{})
	r.Connect(Identity{UserID: 100, Role: domain.RoleCustomer}, &fakeConn{})
	r.Connect(Identity{UserID: 7, Role: domain.RoleTechnician}, &fakeConn{})

	online := r.Online()
	assert.ElementsMatch(t, []Identity{
		{UserID: 100, Role: domain.RoleCustomer},
		{UserID: 7, Role: domain.RoleTechnician},
	}, online)
}
