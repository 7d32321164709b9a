package discovery

import (
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nberrors "github.com/gezibash/netbridge/pkg/errors"
)

func TestMDNSOptionsDefaults(t *testing.T) {
	var o MDNSOptions
	o.setDefaults()
	assert.Equal(t, time.Second, o.Interval)
	assert.Equal(t, 500*time.Millisecond, o.QueryTimeout)
	assert.Equal(t, 3, o.ExpireRounds)
	assert.Equal(t, 64, o.EventBuffer)
}

func TestTransientMapsEAGAIN(t *testing.T) {
	err := transient(&net.OpError{Op: "listen", Err: syscall.EAGAIN})
	assert.ErrorIs(t, err, ErrAgain)
	assert.NotErrorIs(t, transient(errors.New("other")), ErrAgain)
}

func TestResolvedFromEntry(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       `Studio\ A._osc._udp.local.`,
		Host:       "studio.local.",
		AddrV4:     net.ParseIP("192.168.1.10"),
		Port:       9000,
		InfoFields: []string{"ver=1", "flag", "=junk"},
	}
	name := unescapeName(entry.Name)
	require.Equal(t, "Studio A._osc._udp.local.", name)

	r := resolvedFromEntry("_osc._udp.local.", name, entry)
	assert.Equal(t, "studio.local.", r.Hostname)
	assert.Equal(t, uint16(9000), r.Port)
	assert.Equal(t, uint32(120), r.HostTTL)
	assert.Equal(t, uint16(10), r.Priority)
	require.Len(t, r.Addresses, 1)
	assert.Equal(t, []TXTProperty{{Key: "ver", Value: "1"}, {Key: "flag"}}, r.TXT)

	changed := r
	changed.Port = 9001
	assert.True(t, sameResolution(r, r))
	assert.False(t, sameResolution(r, changed))
}

func TestBrowserLifecycle(t *testing.T) {
	e := NewMDNSEngine(MDNSOptions{ExpireRounds: 2})
	b := &browser{engine: e, serviceType: "_osc._udp.local.", events: make(chan Event, 8), stop: make(chan struct{}), seen: map[string]*sighting{}}

	entry := &mdns.ServiceEntry{Name: "one._osc._udp.local.", Host: "h.local.", Port: 1}
	b.round = 1
	b.observe(entry)
	b.observe(&mdns.ServiceEntry{Name: "other._http._tcp.local."})
	b.observe(entry)

	assert.Equal(t, EventFound, (<-b.events).Kind)
	assert.Equal(t, EventResolved, (<-b.events).Kind)
	assert.Empty(t, b.events)

	b.round = 2
	b.expire()
	assert.Empty(t, b.events)

	b.round = 3
	b.expire()
	ev := <-b.events
	assert.Equal(t, EventRemoved, ev.Kind)
	assert.Equal(t, "one._osc._udp.local.", ev.Fullname)
}

func TestMDNSEngineBookkeeping(t *testing.T) {
	e := NewMDNSEngine(MDNSOptions{})

	assert.ErrorIs(t, e.StopBrowse("_osc._udp.local."), nberrors.ErrNotFound)

	ch, err := e.Unregister("missing._osc._udp.local.")
	require.NoError(t, err)
	assert.Equal(t, UnregisterNotFound, <-ch)

	require.NoError(t, e.SetInterface(IfKind{Selector: IfIPv6}, false))
	assert.True(t, e.disableIPv6)
	require.NoError(t, e.SetInterface(IfKind{Selector: IfAll}, true))
	assert.False(t, e.disableIPv6)
	assert.Error(t, e.SetInterface(IfKind{Selector: IfName, Name: "definitely-not-an-iface0"}, true))

	require.NoError(t, e.Shutdown())
	_, err = e.Browse("_osc._udp.local.")
	assert.ErrorIs(t, err, nberrors.ErrClosed)
	assert.NoError(t, e.Shutdown())
}
