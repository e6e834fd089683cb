package xfconf_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"settingsd/internal/logging"
	"settingsd/internal/testsupport"
	"settingsd/internal/xfconf"
)

const (
	service   = "org.xfce.Xfconf"
	path      = dbus.ObjectPath("/org/xfce/Xfconf")
	iface     = "org.xfce.Xfconf"
	pingQuery = "org.freedesktop.DBus.Peer.Ping"
)

func newClient(t *testing.T) (*xfconf.Client, *testsupport.FakeConn, *testsupport.FakeObject) {
	t.Helper()
	conn := testsupport.NewFakeConn()
	obj := conn.FakeObject(service, path)
	obj.Handle(pingQuery, func(...any) ([]any, error) { return nil, nil })
	client := xfconf.NewClient(conn, xfconf.Options{Service: service, Path: path, Interface: iface}, logging.NewNop())
	return client, conn, obj
}

func TestConnectPingsAndSubscribes(t *testing.T) {
	client, conn, obj := newClient(t)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if obj.CallCount(pingQuery) != 1 {
		t.Fatalf("expected one ping, got %d", obj.CallCount(pingQuery))
	}
	if conn.Matches() != 2 || conn.Subscribers() != 1 {
		t.Fatalf("expected 2 match rules and 1 subscriber, got %d/%d", conn.Matches(), conn.Subscribers())
	}
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect returned error: %v", err)
	}
	if obj.CallCount(pingQuery) != 1 {
		t.Fatal("second Connect should not ping again")
	}

	client.Disconnect()
	client.Disconnect()
	if conn.Matches() != 0 || conn.Subscribers() != 0 {
		t.Fatalf("expected subscriptions dropped, got %d/%d", conn.Matches(), conn.Subscribers())
	}
	if client.Connected() {
		t.Fatal("expected disconnected client")
	}
}

func TestConnectFailsWhenServiceMissing(t *testing.T) {
	conn := testsupport.NewFakeConn()
	client := xfconf.NewClient(conn, xfconf.Options{Service: service, Path: path, Interface: iface}, nil)

	err := client.Connect(context.Background())
	if !errors.Is(err, xfconf.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if conn.Subscribers() != 0 {
		t.Fatal("failed connect must not leave a subscriber")
	}
}

func TestConnectWithoutBus(t *testing.T) {
	client := xfconf.NewClient(nil, xfconf.Options{Service: service, Path: path, Interface: iface}, nil)
	if err := client.Connect(context.Background()); !errors.Is(err, xfconf.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestPropertiesUnwrapsVariants(t *testing.T) {
	client, _, obj := newClient(t)
	obj.Handle(iface+".GetAllProperties", func(args ...any) ([]any, error) {
		if args[0] != "pointers" || args[1] != "/" {
			return nil, errors.New("unexpected arguments")
		}
		return []any{map[string]dbus.Variant{
			"/Mouse/Acceleration": dbus.MakeVariant(2.5),
			"/Mouse/RightHanded":  dbus.MakeVariant(true),
		}}, nil
	})

	props, err := client.Properties(context.Background(), "pointers", "/")
	if err != nil {
		t.Fatalf("Properties returned error: %v", err)
	}
	if props["/Mouse/Acceleration"] != 2.5 || props["/Mouse/RightHanded"] != true {
		t.Fatalf("unexpected properties: %v", props)
	}
}

func TestPropertyReadsSingleValue(t *testing.T) {
	client, _, obj := newClient(t)
	obj.Handle(iface+".GetProperty", func(args ...any) ([]any, error) {
		return []any{dbus.MakeVariant(int32(4))}, nil
	})
	value, err := client.Property(context.Background(), "xfwm4", "/general/workspace_count")
	if err != nil {
		t.Fatalf("Property returned error: %v", err)
	}
	if value != int32(4) {
		t.Fatalf("unexpected value %v", value)
	}
}

func TestPropertiesPropagatesErrors(t *testing.T) {
	client, _, _ := newClient(t)
	if _, err := client.Properties(context.Background(), "keyboards", "/"); err == nil {
		t.Fatal("expected error for unhandled method")
	}
}

func TestWatchDeliversMatchingChannel(t *testing.T) {
	client, conn, _ := newClient(t)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer client.Disconnect()

	var mu sync.Mutex
	var got []xfconf.Change
	received := make(chan struct{}, 4)
	cancel := client.Watch("keyboards", func(c xfconf.Change) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
		received <- struct{}{}
	})

	conn.Emit(&dbus.Signal{Path: path, Name: iface + ".PropertyChanged", Body: []any{"pointers", "/Mouse", dbus.MakeVariant(1)}})
	conn.Emit(&dbus.Signal{Path: path, Name: iface + ".PropertyChanged", Body: []any{"keyboards", "/Default/KeyRepeat", dbus.MakeVariant(true)}})
	conn.Emit(&dbus.Signal{Path: path, Name: iface + ".PropertyRemoved", Body: []any{"keyboards", "/Default/KeyRepeat/Rate"}})
	conn.Emit(&dbus.Signal{Path: "/elsewhere", Name: iface + ".PropertyChanged", Body: []any{"keyboards", "/x", dbus.MakeVariant(1)}})

	for i := 0; i < 2; i++ {
		select {
		case <-received:
		case <-time.After(2 * time.Second):
			t.Fatal("watcher not invoked")
		}
	}

	cancel()
	cancel()
	conn.Emit(&dbus.Signal{Path: path, Name: iface + ".PropertyChanged", Body: []any{"keyboards", "/late", dbus.MakeVariant(1)}})
	select {
	case <-received:
		t.Fatal("cancelled watcher was invoked")
	case <-time.After(50 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected 2 changes, got %v", got)
	}
	if got[0].Property != "/Default/KeyRepeat" || got[0].Value != true || got[0].Removed {
		t.Fatalf("unexpected change: %+v", got[0])
	}
	if got[1].Property != "/Default/KeyRepeat/Rate" || !got[1].Removed {
		t.Fatalf("unexpected removal: %+v", got[1])
	}
}
